package postgres

import (
	"context"
	"fmt"
	"strings"

	"secdir/internal/constants"
	"secdir/internal/logger"
	"secdir/internal/queries"
)

type License struct {
	Number   string
	IssuedBy string
}

type Certificate struct {
	Name     string
	Number   string
	IssuedBy string
}

// Vendor is a fully assembled directory entry: the base row plus aggregated
// products, services, ratings, licenses and certificates.
type Vendor struct {
	ID          int
	Name        string
	City        string
	Description string
	Website     string
	Country     string
	Products    string
	Services    string
	AvgRating   float64
	RatingCount int
	Licenses    []License
	Certs       []Certificate
}

// VendorFilter narrows and orders a vendor listing. Name and City are
// substring searches; CityExact selects the city dropdown's equality filter
// instead. Page is 1-based.
type VendorFilter struct {
	Name      string
	City      string
	CityExact bool
	Sort      string
	Page      int
}

// buildListQuery picks the listing template and appends the ORDER BY and
// pagination clause. Sort values outside the whitelist fall back to name
// order; user input is never interpolated into the clause.
func buildListQuery(filter VendorFilter, reg queries.Registry) (string, []any, error) {
	name := "LIST_VENDORS"
	var args []any
	switch {
	case filter.Name != "":
		name = "SEARCH_VENDORS_BY_NAME"
		args = append(args, "%"+filter.Name+"%")
	case filter.CityExact && filter.City != "":
		name = "GET_VENDORS_BY_CITY"
		args = append(args, filter.City)
	case filter.City != "":
		name = "SEARCH_VENDORS_BY_CITY"
		args = append(args, "%"+filter.City+"%")
	}

	q, err := reg.Get(name)
	if err != nil {
		return "", nil, err
	}
	q = strings.TrimSuffix(strings.TrimSpace(q), ";")

	order := "v.name"
	switch filter.Sort {
	case "city":
		order = "v.city, v.name"
	case "rating":
		order = "avg_rating DESC, v.name"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	q = fmt.Sprintf("%s ORDER BY %s LIMIT %d OFFSET %d",
		q, order, constants.PageSize, (page-1)*constants.PageSize)
	return q, args, nil
}

// ListVendors returns one page of vendors matching the filter, each with its
// licenses and certificates attached.
func (s *Store) ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, error) {
	q, args, err := buildListQuery(filter, s.queries)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		logger.Errorf(ctx, "vendor listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.City, &v.Description, &v.Website,
			&v.Country, &v.Products, &v.Services, &v.AvgRating, &v.RatingCount); err != nil {
			logger.Errorf(ctx, "vendor scan failed: %v", err)
			return nil, err
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		logger.Errorf(ctx, "vendor listing failed: %v", err)
		return nil, err
	}

	for i := range vendors {
		if vendors[i].Licenses, err = s.LicensesByVendor(ctx, vendors[i].ID); err != nil {
			return nil, err
		}
		if vendors[i].Certs, err = s.CertificatesByVendor(ctx, vendors[i].ID); err != nil {
			return nil, err
		}
	}
	return vendors, nil
}

// Cities returns the distinct vendor cities for the filter dropdown.
func (s *Store) Cities(ctx context.Context) ([]string, error) {
	q, err := s.query("LIST_CITIES")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		logger.Errorf(ctx, "city listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

// AddVendor inserts a vendor row and returns its id. A countryID of zero is
// stored as NULL.
func (s *Store) AddVendor(ctx context.Context, name, city, description, website string, countryID int) (int, error) {
	q, err := s.query("ADD_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return 0, err
	}

	var country any
	if countryID > 0 {
		country = countryID
	}
	var id int
	if err := s.pool.QueryRow(ctx, q, name, city, description, website, country).Scan(&id); err != nil {
		logger.Errorf(ctx, "add vendor failed: %v", err)
		return 0, err
	}
	return id, nil
}

func (s *Store) UpdateVendor(ctx context.Context, id int, name, city, description, website string, countryID int) error {
	q, err := s.query("UPDATE_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	var country any
	if countryID > 0 {
		country = countryID
	}
	if _, err := s.pool.Exec(ctx, q, name, city, description, website, country, id); err != nil {
		logger.Errorf(ctx, "update vendor failed: %v", err)
		return err
	}
	return nil
}

// DeleteVendor removes a vendor; dependent rows go with it via ON DELETE CASCADE.
func (s *Store) DeleteVendor(ctx context.Context, id int) error {
	q, err := s.query("DELETE_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		logger.Errorf(ctx, "delete vendor failed: %v", err)
		return err
	}
	return nil
}

// SetVendorProducts replaces a vendor's product links with the given ids.
func (s *Store) SetVendorProducts(ctx context.Context, vendorID int, productIDs []int) error {
	return s.replaceLinks(ctx, vendorID, productIDs, "DELETE_VENDOR_PRODUCTS", "ADD_VENDOR_PRODUCT")
}

// SetVendorServices replaces a vendor's service links with the given ids.
func (s *Store) SetVendorServices(ctx context.Context, vendorID int, serviceIDs []int) error {
	return s.replaceLinks(ctx, vendorID, serviceIDs, "DELETE_VENDOR_SERVICES", "ADD_VENDOR_SERVICE")
}

func (s *Store) replaceLinks(ctx context.Context, vendorID int, ids []int, deleteName, addName string) error {
	del, err := s.query(deleteName)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}
	add, err := s.query(addName)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, del, vendorID); err != nil {
		logger.Errorf(ctx, "clearing vendor links failed: %v", err)
		return err
	}
	for _, id := range ids {
		if _, err := s.pool.Exec(ctx, add, vendorID, id); err != nil {
			logger.Errorf(ctx, "adding vendor link failed: %v", err)
			return err
		}
	}
	return nil
}

// LicensesByVendor lists a vendor's licenses.
func (s *Store) LicensesByVendor(ctx context.Context, vendorID int) ([]License, error) {
	q, err := s.query("GET_LICENSES_BY_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q, vendorID)
	if err != nil {
		logger.Errorf(ctx, "license listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var licenses []License
	for rows.Next() {
		var l License
		if err := rows.Scan(&l.Number, &l.IssuedBy); err != nil {
			return nil, err
		}
		licenses = append(licenses, l)
	}
	return licenses, rows.Err()
}

func (s *Store) AddLicense(ctx context.Context, vendorID int, number, issuedBy string) error {
	q, err := s.query("ADD_LICENSE")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, vendorID, number, issuedBy); err != nil {
		logger.Errorf(ctx, "add license failed: %v", err)
		return err
	}
	return nil
}

func (s *Store) DeleteLicenses(ctx context.Context, vendorID int) error {
	q, err := s.query("DELETE_LICENSES")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, vendorID); err != nil {
		logger.Errorf(ctx, "delete licenses failed: %v", err)
		return err
	}
	return nil
}

// CertificatesByVendor lists a vendor's certificates.
func (s *Store) CertificatesByVendor(ctx context.Context, vendorID int) ([]Certificate, error) {
	q, err := s.query("GET_CERTIFICATES_BY_VENDOR")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q, vendorID)
	if err != nil {
		logger.Errorf(ctx, "certificate listing failed: %v", err)
		return nil, err
	}
	defer rows.Close()

	var certs []Certificate
	for rows.Next() {
		var c Certificate
		if err := rows.Scan(&c.Name, &c.Number, &c.IssuedBy); err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

func (s *Store) AddCertificate(ctx context.Context, vendorID int, name, number, issuedBy string) error {
	q, err := s.query("ADD_CERTIFICATE")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, vendorID, name, number, issuedBy); err != nil {
		logger.Errorf(ctx, "add certificate failed: %v", err)
		return err
	}
	return nil
}

func (s *Store) DeleteCertificates(ctx context.Context, vendorID int) error {
	q, err := s.query("DELETE_CERTIFICATES")
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return err
	}

	if _, err := s.pool.Exec(ctx, q, vendorID); err != nil {
		logger.Errorf(ctx, "delete certificates failed: %v", err)
		return err
	}
	return nil
}
