package server

import (
	"context"
	"html/template"
	"strconv"

	"secdir/internal/constants"
	"secdir/internal/httpx"
	"secdir/internal/logger"
	"secdir/internal/session"
	"secdir/internal/store/postgres"
)

// vendorView pairs a vendor with its reviews for the home page.
type vendorView struct {
	postgres.Vendor
	Ratings []postgres.Rating
}

func (s *Server) loginPage(ctx context.Context, message string) *httpx.Response {
	return s.renderPage(ctx, "login.html", map[string]any{
		"Error": message,
	})
}

func (s *Server) registerPage(ctx context.Context, message string) *httpx.Response {
	return s.renderPage(ctx, "register.html", map[string]any{
		"Error": message,
	})
}

func (s *Server) renderPage(ctx context.Context, name string, data map[string]any) *httpx.Response {
	body, err := s.templates.Render(name, data)
	if err != nil {
		logger.Errorf(ctx, "render %s: %v", name, err)
		return httpx.HTML("")
	}
	return httpx.HTML(body)
}

// handleIndex serves the vendor listing to authenticated users and the login
// page to everyone else.
func (s *Server) handleIndex(ctx context.Context, req httpx.Request, id session.Identity) *httpx.Response {
	if !id.LoggedIn {
		return s.loginPage(ctx, "")
	}

	filter := postgres.VendorFilter{
		Name: req.Query.Get("name"),
		Sort: req.Query.Get("sort"),
		Page: pageNumber(req.Query.Get("page")),
	}
	if city := req.Query.Get("filter_city"); city != "" {
		filter.City = city
		filter.CityExact = true
	} else {
		filter.City = req.Query.Get("city")
	}

	vendors, err := s.store.ListVendors(ctx, filter)
	if err != nil {
		logger.Errorf(ctx, "listing vendors: %v", err)
	}

	views := make([]vendorView, 0, len(vendors))
	for _, v := range vendors {
		ratings, err := s.store.RatingsByVendor(ctx, v.ID)
		if err != nil {
			logger.Errorf(ctx, "ratings for vendor %d: %v", v.ID, err)
		}
		views = append(views, vendorView{Vendor: v, Ratings: ratings})
	}

	cities, err := s.store.Cities(ctx)
	if err != nil {
		logger.Errorf(ctx, "listing cities: %v", err)
	}

	data := map[string]any{
		"Username":   id.Username,
		"IsAdmin":    id.IsAdmin,
		"TabToken":   req.Cookie(constants.TabTokenCookie),
		"Vendors":    views,
		"Cities":     cities,
		"SearchName": filter.Name,
		"SearchCity": req.Query.Get("city"),
		"FilterCity": req.Query.Get("filter_city"),
		"Sort":       filter.Sort,
		"Page":       filter.Page,
		"PrevPage":   filter.Page - 1,
		"NextPage":   filter.Page + 1,
		"HasPrev":    filter.Page > 1,
		"HasNext":    len(vendors) == constants.PageSize,
		"PageQuery":  template.URL(listQuerySuffix(filter, req.Query.Get("city"), req.Query.Get("filter_city"))),
	}

	if id.IsAdmin {
		if data["Countries"], err = s.store.Countries(ctx); err != nil {
			logger.Errorf(ctx, "listing countries: %v", err)
		}
		if data["Products"], err = s.store.Products(ctx); err != nil {
			logger.Errorf(ctx, "listing products: %v", err)
		}
		if data["Services"], err = s.store.Services(ctx); err != nil {
			logger.Errorf(ctx, "listing services: %v", err)
		}
	}

	return s.renderPage(ctx, "home.html", data)
}

// listQuerySuffix rebuilds the filter portion of the query string so that
// pagination links keep the active search.
func listQuerySuffix(filter postgres.VendorFilter, city, filterCity string) string {
	var suffix string
	if filter.Name != "" {
		suffix += "&name=" + httpx.EncodeComponent(filter.Name)
	}
	if city != "" {
		suffix += "&city=" + httpx.EncodeComponent(city)
	}
	if filterCity != "" {
		suffix += "&filter_city=" + httpx.EncodeComponent(filterCity)
	}
	if filter.Sort != "" {
		suffix += "&sort=" + httpx.EncodeComponent(filter.Sort)
	}
	return suffix
}

func pageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// handleLogin authenticates an existing account. Unknown usernames and wrong
// passwords produce the same message.
func (s *Server) handleLogin(ctx context.Context, req httpx.Request, _ session.Identity) *httpx.Response {
	form := req.Form()
	username := form.Get("username")
	password := form.Get("password")

	if username == "" {
		return s.loginPage(ctx, constants.MsgEmptyUsername)
	}

	user, found, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return s.loginPage(ctx, constants.MsgSessionFailed)
	}
	if !found || user.Password != password {
		return s.loginPage(ctx, constants.MsgBadCredentials)
	}

	return s.startSession(ctx, user)
}

// startSession issues the session and tab token cookies and serves the
// interstitial page that seeds tab state before landing on the listing.
func (s *Server) startSession(ctx context.Context, user postgres.User) *httpx.Response {
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		logger.Errorf(ctx, "creating session for %s: %v", user.Username, err)
		return s.loginPage(ctx, constants.MsgSessionFailed)
	}
	tabToken := s.sessions.NewTabToken()

	logger.Infof(ctx, "user %s logged in", user.Username)

	page := s.renderPage(ctx, "redirect.html", map[string]any{
		"TabToken": tabToken,
	})
	return page.
		WithCookie(httpx.Cookie{Name: constants.SessionCookieName, Value: token, HTTPOnly: true}).
		WithCookie(httpx.Cookie{Name: constants.TabTokenCookie, Value: tabToken})
}

func (s *Server) handleRegisterPage(ctx context.Context, _ httpx.Request, _ session.Identity) *httpx.Response {
	return s.registerPage(ctx, "")
}

// handleRegister creates an account and logs it in. The reserved admin
// username receives the admin flag; login never creates accounts.
func (s *Server) handleRegister(ctx context.Context, req httpx.Request, _ session.Identity) *httpx.Response {
	form := req.Form()
	username := form.Get("username")
	password := form.Get("password")

	if username == "" {
		return s.registerPage(ctx, constants.MsgEmptyUsername)
	}

	if _, exists, err := s.store.UserByUsername(ctx, username); err != nil {
		return s.registerPage(ctx, constants.MsgRegisterFailed)
	} else if exists {
		return s.registerPage(ctx, constants.MsgUserExists)
	}

	isAdmin := username == constants.AdminUsername
	if err := s.store.CreateUser(ctx, username, password, isAdmin); err != nil {
		return s.registerPage(ctx, constants.MsgRegisterFailed)
	}

	user, found, err := s.store.UserByUsername(ctx, username)
	if err != nil || !found {
		return s.loginPage(ctx, constants.MsgSessionFailed)
	}

	logger.Infof(ctx, "registered user %s", username)
	return s.startSession(ctx, user)
}

// handleLogout destroys the session and clears both cookies. It is open to
// anonymous callers too, so a browser with expired cookies can still shed
// them.
func (s *Server) handleLogout(ctx context.Context, _ httpx.Request, id session.Identity) *httpx.Response {
	if err := s.sessions.Destroy(ctx, id.Token); err != nil {
		logger.Errorf(ctx, "destroying session: %v", err)
	}
	if id.LoggedIn {
		logger.Infof(ctx, "user %s logged out", id.Username)
	}

	return httpx.Redirect(constants.RouteIndex).
		WithCookie(httpx.Cookie{Name: constants.SessionCookieName, HTTPOnly: true, Clear: true}).
		WithCookie(httpx.Cookie{Name: constants.TabTokenCookie, Clear: true})
}

// handleAdd creates a vendor along with its category links and optional
// license and certificate.
func (s *Server) handleAdd(ctx context.Context, req httpx.Request, _ session.Identity) *httpx.Response {
	form := req.Form()

	id, err := s.store.AddVendor(ctx,
		form.Get("name"), form.Get("city"), form.Get("description"),
		form.Get("website"), atoi(form.Get("country_id")))
	if err != nil {
		return httpx.Redirect(constants.RouteIndex)
	}

	s.applyVendorDetails(ctx, id, form, false)
	return httpx.Redirect(constants.RouteIndex)
}

// handleUpdate rewrites a vendor row and replaces its links, licenses and
// certificates with the submitted set.
func (s *Server) handleUpdate(ctx context.Context, req httpx.Request, _ session.Identity) *httpx.Response {
	form := req.Form()
	id := atoi(form.Get("id"))
	if id == 0 {
		return httpx.Redirect(constants.RouteIndex)
	}

	if err := s.store.UpdateVendor(ctx, id,
		form.Get("name"), form.Get("city"), form.Get("description"),
		form.Get("website"), atoi(form.Get("country_id"))); err != nil {
		return httpx.Redirect(constants.RouteIndex)
	}

	s.applyVendorDetails(ctx, id, form, true)
	return httpx.Redirect(constants.RouteIndex)
}

// applyVendorDetails stores the category links plus license and certificate
// fields of a submitted vendor form. On update the previous licenses and
// certificates are dropped first.
func (s *Server) applyVendorDetails(ctx context.Context, vendorID int, form httpx.Params, replace bool) {
	if err := s.store.SetVendorProducts(ctx, vendorID, atoiAll(form.GetAll("product_ids"))); err != nil {
		logger.Errorf(ctx, "setting vendor products: %v", err)
	}
	if err := s.store.SetVendorServices(ctx, vendorID, atoiAll(form.GetAll("service_ids"))); err != nil {
		logger.Errorf(ctx, "setting vendor services: %v", err)
	}

	if replace {
		if err := s.store.DeleteLicenses(ctx, vendorID); err != nil {
			logger.Errorf(ctx, "clearing licenses: %v", err)
		}
		if err := s.store.DeleteCertificates(ctx, vendorID); err != nil {
			logger.Errorf(ctx, "clearing certificates: %v", err)
		}
	}

	if number := form.Get("license_number"); number != "" {
		if err := s.store.AddLicense(ctx, vendorID, number, form.Get("license_issued_by")); err != nil {
			logger.Errorf(ctx, "adding license: %v", err)
		}
	}
	if name := form.Get("certificate_name"); name != "" {
		if err := s.store.AddCertificate(ctx, vendorID, name,
			form.Get("certificate_number"), form.Get("certificate_issued_by")); err != nil {
			logger.Errorf(ctx, "adding certificate: %v", err)
		}
	}
}

func (s *Server) handleDelete(ctx context.Context, req httpx.Request, _ session.Identity) *httpx.Response {
	if id := atoi(req.Form().Get("id")); id != 0 {
		if err := s.store.DeleteVendor(ctx, id); err != nil {
			logger.Errorf(ctx, "deleting vendor %d: %v", id, err)
		}
	}
	return httpx.Redirect(constants.RouteIndex)
}

// handleRate upserts the caller's rating of a vendor. Out-of-range ratings
// are ignored.
func (s *Server) handleRate(ctx context.Context, req httpx.Request, id session.Identity) *httpx.Response {
	form := req.Form()
	vendorID := atoi(form.Get("vendor_id"))
	rating := atoi(form.Get("rating"))

	if vendorID == 0 || rating < constants.MinRating || rating > constants.MaxRating {
		return httpx.Redirect(constants.RouteIndex)
	}

	if err := s.store.UpsertRating(ctx, vendorID, id.UserID, rating, form.Get("comment")); err != nil {
		logger.Errorf(ctx, "rating vendor %d: %v", vendorID, err)
	}
	return httpx.Redirect(constants.RouteIndex)
}

// handleLoginRequired is the landing page for tabs whose stored tab token no
// longer matches the live login. It clears the stale tab state client-side.
func (s *Server) handleLoginRequired(ctx context.Context, _ httpx.Request, _ session.Identity) *httpx.Response {
	return s.renderPage(ctx, "login.html", map[string]any{
		"Error":         constants.MsgAuthRequired,
		"ClearTabState": true,
	})
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atoiAll(vals []string) []int {
	var ids []int
	for _, v := range vals {
		if n := atoi(v); n != 0 {
			ids = append(ids, n)
		}
	}
	return ids
}
