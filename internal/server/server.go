// Package server is the raw-socket HTTP front end: a bounded accept loop that
// reads one request per connection, resolves the caller's session, dispatches
// through the ordered route table and writes a single response.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"secdir/internal/config"
	"secdir/internal/constants"
	"secdir/internal/httpx"
	"secdir/internal/logger"
	"secdir/internal/session"
	"secdir/internal/store/postgres"
)

// Directory is the persistence surface the handlers use. *postgres.Store
// implements it.
type Directory interface {
	UserByUsername(ctx context.Context, username string) (postgres.User, bool, error)
	CreateUser(ctx context.Context, username, password string, isAdmin bool) error

	ListVendors(ctx context.Context, filter postgres.VendorFilter) ([]postgres.Vendor, error)
	Cities(ctx context.Context) ([]string, error)
	AddVendor(ctx context.Context, name, city, description, website string, countryID int) (int, error)
	UpdateVendor(ctx context.Context, id int, name, city, description, website string, countryID int) error
	DeleteVendor(ctx context.Context, id int) error
	SetVendorProducts(ctx context.Context, vendorID int, productIDs []int) error
	SetVendorServices(ctx context.Context, vendorID int, serviceIDs []int) error

	AddLicense(ctx context.Context, vendorID int, number, issuedBy string) error
	DeleteLicenses(ctx context.Context, vendorID int) error
	AddCertificate(ctx context.Context, vendorID int, name, number, issuedBy string) error
	DeleteCertificates(ctx context.Context, vendorID int) error

	UpsertRating(ctx context.Context, vendorID, userID, rating int, comment string) error
	RatingsByVendor(ctx context.Context, vendorID int) ([]postgres.Rating, error)

	Countries(ctx context.Context) ([]postgres.CatalogEntry, error)
	Products(ctx context.Context) ([]postgres.CatalogEntry, error)
	Services(ctx context.Context) ([]postgres.CatalogEntry, error)
}

type Server struct {
	cfg       config.Config
	store     Directory
	sessions  *session.Manager
	templates *TemplateManager
	table     []route
	log       *zap.SugaredLogger
}

func New(cfg config.Config, store Directory, sessions *session.Manager, tm *TemplateManager, log *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		templates: tm,
		log:       log,
	}
	s.table = s.routes()
	return s
}

// Run accepts connections until ctx is cancelled. The listener is capped at
// the configured connection limit; each connection is served on its own
// goroutine and closed after one response.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, s.cfg.MaxConns)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Infof("listening on :%s", s.cfg.Port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Errorf("accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("panic serving %s: %v", conn.RemoteAddr(), r)
		}
	}()

	reqLog := s.log.With("request_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	ctx = logger.ToContext(ctx, reqLog)

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
		reqLog.Errorf("set read deadline: %v", err)
		return
	}

	// One bounded read; whatever arrived is the whole request.
	buf := make([]byte, constants.ReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	req := httpx.Parse(buf[:n])
	reqLog.Infof("%s %s", req.Method, req.Path)

	id := session.Anonymous
	if sess, ok := s.sessions.Resolve(ctx, req.Cookie(constants.SessionCookieName)); ok {
		id = session.FromSession(sess)
	}

	resp := s.dispatch(ctx, req, id)

	if err := conn.SetWriteDeadline(time.Now().Add(constants.WriteTimeout)); err != nil {
		reqLog.Errorf("set write deadline: %v", err)
	}
	if _, err := conn.Write(resp.Bytes()); err != nil {
		reqLog.Errorf("write response: %v", err)
	}
}
