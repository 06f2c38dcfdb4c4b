package postgres

import (
	"context"

	"secdir/internal/logger"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      BOOLEAN NOT NULL DEFAULT FALSE)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id VARCHAR(64) PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS countries (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id          SERIAL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		city        VARCHAR(100) NOT NULL,
		description TEXT,
		website     VARCHAR(255),
		country_id  INTEGER REFERENCES countries (id))`,
	`CREATE TABLE IF NOT EXISTS licenses (
		id             SERIAL PRIMARY KEY,
		vendor_id      INTEGER REFERENCES vendors (id) ON DELETE CASCADE,
		license_number VARCHAR(100) NOT NULL,
		issued_by      VARCHAR(255) NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS certificates (
		id                 SERIAL PRIMARY KEY,
		vendor_id          INTEGER REFERENCES vendors (id) ON DELETE CASCADE,
		certificate_name   VARCHAR(255) NOT NULL,
		certificate_number VARCHAR(100),
		issued_by          VARCHAR(255) NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS products (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS services (
		id   SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS vendor_products (
		vendor_id  INTEGER REFERENCES vendors (id) ON DELETE CASCADE,
		product_id INTEGER REFERENCES products (id) ON DELETE CASCADE,
		PRIMARY KEY (vendor_id, product_id))`,
	`CREATE TABLE IF NOT EXISTS vendor_services (
		vendor_id  INTEGER REFERENCES vendors (id) ON DELETE CASCADE,
		service_id INTEGER REFERENCES services (id) ON DELETE CASCADE,
		PRIMARY KEY (vendor_id, service_id))`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id         SERIAL PRIMARY KEY,
		vendor_id  INTEGER NOT NULL REFERENCES vendors (id) ON DELETE CASCADE,
		user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (vendor_id, user_id))`,
}

var seedStatements = []string{
	`INSERT INTO countries (name) VALUES
		('Russia'), ('United States'), ('Germany'), ('Israel'), ('United Kingdom')
		ON CONFLICT (name) DO NOTHING`,
	`INSERT INTO products (name) VALUES
		('SIEM'), ('Firewall'), ('Antivirus'), ('DLP'), ('PKI'),
		('VPN'), ('IDS/IPS'), ('Data encryption'), ('Identity management'), ('Threat intelligence')
		ON CONFLICT (name) DO NOTHING`,
	`INSERT INTO services (name) VALUES
		('Security audit'), ('Penetration testing'), ('Security consulting'),
		('Deployment'), ('Staff training'), ('Security monitoring'),
		('Incident management'), ('Risk management'), ('ISO 27001 certification'),
		('Security policy development')
		ON CONFLICT (name) DO NOTHING`,
}

func (s *Store) bootstrap(ctx context.Context) error {
	for _, ddl := range tables {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return err
		}
	}

	var vendorCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&vendorCount); err != nil {
		return err
	}
	if vendorCount > 0 {
		logger.Infof(ctx, "schema ready, %d vendors present, skipping seed", vendorCount)
		return nil
	}

	for _, stmt := range seedStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// The well-known bootstrap admin account. Passwords are stored and
	// compared in plaintext; a known weakness kept from the original system.
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash, is_admin)
		 VALUES ('admin', 'admin123', TRUE)
		 ON CONFLICT (username) DO NOTHING`); err != nil {
		return err
	}

	logger.Infof(ctx, "schema ready, seed data installed")
	return nil
}
