package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"secdir/internal/config"
	"secdir/internal/constants"
	"secdir/internal/httpx"
	"secdir/internal/session"
	"secdir/internal/store/postgres"
)

type ratingCall struct {
	vendorID, userID, rating int
	comment                  string
}

// fakeDirectory is an in-memory Directory that records mutations.
type fakeDirectory struct {
	users   map[string]postgres.User
	vendors []postgres.Vendor

	createdUsers   []postgres.User
	addedVendors   []string
	deletedVendors []int
	upserts        []ratingCall
	linkCalls      int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]postgres.User{}}
}

func (f *fakeDirectory) UserByUsername(_ context.Context, username string) (postgres.User, bool, error) {
	u, ok := f.users[username]
	return u, ok, nil
}

func (f *fakeDirectory) CreateUser(_ context.Context, username, password string, isAdmin bool) error {
	u := postgres.User{ID: len(f.users) + 1, Username: username, Password: password, IsAdmin: isAdmin}
	f.users[username] = u
	f.createdUsers = append(f.createdUsers, u)
	return nil
}

func (f *fakeDirectory) ListVendors(context.Context, postgres.VendorFilter) ([]postgres.Vendor, error) {
	return f.vendors, nil
}

func (f *fakeDirectory) Cities(context.Context) ([]string, error) { return []string{"Berlin"}, nil }

func (f *fakeDirectory) AddVendor(_ context.Context, name, _, _, _ string, _ int) (int, error) {
	f.addedVendors = append(f.addedVendors, name)
	return len(f.addedVendors), nil
}

func (f *fakeDirectory) UpdateVendor(context.Context, int, string, string, string, string, int) error {
	return nil
}

func (f *fakeDirectory) DeleteVendor(_ context.Context, id int) error {
	f.deletedVendors = append(f.deletedVendors, id)
	return nil
}

func (f *fakeDirectory) SetVendorProducts(context.Context, int, []int) error {
	f.linkCalls++
	return nil
}

func (f *fakeDirectory) SetVendorServices(context.Context, int, []int) error {
	f.linkCalls++
	return nil
}

func (f *fakeDirectory) AddLicense(context.Context, int, string, string) error { return nil }
func (f *fakeDirectory) DeleteLicenses(context.Context, int) error             { return nil }
func (f *fakeDirectory) AddCertificate(context.Context, int, string, string, string) error {
	return nil
}
func (f *fakeDirectory) DeleteCertificates(context.Context, int) error { return nil }

func (f *fakeDirectory) UpsertRating(_ context.Context, vendorID, userID, rating int, comment string) error {
	f.upserts = append(f.upserts, ratingCall{vendorID, userID, rating, comment})
	return nil
}

func (f *fakeDirectory) RatingsByVendor(context.Context, int) ([]postgres.Rating, error) {
	return nil, nil
}

func (f *fakeDirectory) Countries(context.Context) ([]postgres.CatalogEntry, error) { return nil, nil }
func (f *fakeDirectory) Products(context.Context) ([]postgres.CatalogEntry, error)  { return nil, nil }
func (f *fakeDirectory) Services(context.Context) ([]postgres.CatalogEntry, error)  { return nil, nil }

type fakeSessionStore struct {
	sessions map[string]session.Session
}

func (f *fakeSessionStore) CreateSession(_ context.Context, token string, userID int, expiresAt time.Time) error {
	f.sessions[token] = session.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeSessionStore) SessionByToken(_ context.Context, token string) (session.Session, bool, error) {
	s, ok := f.sessions[token]
	return s, ok, nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionStore) DeleteSessionsForUser(context.Context, int) error { return nil }

func newTestServer(t *testing.T) (*Server, *fakeDirectory, *fakeSessionStore) {
	t.Helper()

	tm, err := NewTemplateManager()
	require.NoError(t, err)

	dir := newFakeDirectory()
	store := &fakeSessionStore{sessions: map[string]session.Session{}}
	sessions := session.NewManager(store, session.NewSeededTokenSource(1))

	s := New(config.Config{Port: "0", ReadTimeout: time.Second}, dir, sessions, tm, zap.NewNop().Sugar())
	return s, dir, store
}

func request(t *testing.T, raw string) httpx.Request {
	t.Helper()
	return httpx.Parse([]byte(raw))
}

func postForm(t *testing.T, path, body string) httpx.Request {
	t.Helper()
	return request(t, "POST "+path+" HTTP/1.1\r\nHost: x\r\n\r\n"+body)
}

var (
	userIdentity  = session.Identity{LoggedIn: true, UserID: 7, Username: "carol", Token: "tok"}
	adminIdentity = session.Identity{LoggedIn: true, UserID: 1, Username: "admin", IsAdmin: true, Token: "tok"}
)

func TestIndexAnonymousServesLoginPage(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request(t, "GET / HTTP/1.1\r\n\r\n"), session.Anonymous)

	assert.Equal(t, 200, resp.Status)
	assert.Contains(t, resp.Body, "Sign in")
}

func TestUnknownPathFallsThroughToLogin(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request(t, "GET /no/such/page HTTP/1.1\r\n\r\n"), userIdentity)

	assert.Equal(t, 200, resp.Status)
	assert.Contains(t, resp.Body, "Sign in")
}

func TestIndexRequiresExactRootPath(t *testing.T) {
	s, dir, _ := newTestServer(t)
	dir.vendors = []postgres.Vendor{{ID: 1, Name: "Acme Security"}}

	resp := s.dispatch(context.Background(), request(t, "GET /anything HTTP/1.1\r\n\r\n"), userIdentity)
	assert.NotContains(t, resp.Body, "Acme Security")
}

func TestIndexListsVendorsForUser(t *testing.T) {
	s, dir, _ := newTestServer(t)
	dir.vendors = []postgres.Vendor{{ID: 1, Name: "Acme Security", City: "Berlin"}}

	resp := s.dispatch(context.Background(), request(t, "GET / HTTP/1.1\r\n\r\n"), userIdentity)

	assert.Contains(t, resp.Body, "Acme Security")
	assert.Contains(t, resp.Body, "carol")
	assert.NotContains(t, resp.Body, "Add vendor")
}

func TestIndexShowsAdminForms(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request(t, "GET / HTTP/1.1\r\n\r\n"), adminIdentity)

	assert.Contains(t, resp.Body, "Add vendor")
}

func TestAdminRouteInvisibleWithoutAdmin(t *testing.T) {
	s, dir, _ := newTestServer(t)

	for _, id := range []session.Identity{session.Anonymous, userIdentity} {
		resp := s.dispatch(context.Background(), postForm(t, "/delete", "id=3"), id)

		// Denied callers see the login page, not an error status.
		assert.Equal(t, 200, resp.Status)
		assert.Contains(t, resp.Body, "Sign in")
	}
	assert.Empty(t, dir.deletedVendors)
}

func TestAdminDeleteVendor(t *testing.T) {
	s, dir, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), postForm(t, "/delete", "id=3"), adminIdentity)

	assert.Equal(t, 302, resp.Status)
	assert.Equal(t, []int{3}, dir.deletedVendors)
}

func TestAdminAddVendorAppliesLinks(t *testing.T) {
	s, dir, _ := newTestServer(t)

	body := "name=Acme&city=Berlin&description=d&website=&country_id=2&product_ids=1&product_ids=2&service_ids=3"
	resp := s.dispatch(context.Background(), postForm(t, "/add", body), adminIdentity)

	assert.Equal(t, 302, resp.Status)
	assert.Equal(t, []string{"Acme"}, dir.addedVendors)
	assert.Equal(t, 2, dir.linkCalls)
}

func TestLoginEmptyUsername(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), postForm(t, "/login", "username=&password=x"), session.Anonymous)

	assert.Contains(t, resp.Body, constants.MsgEmptyUsername)
}

func TestLoginBadCredentials(t *testing.T) {
	s, dir, _ := newTestServer(t)
	dir.users["carol"] = postgres.User{ID: 7, Username: "carol", Password: "right"}

	for _, body := range []string{"username=carol&password=wrong", "username=nobody&password=x"} {
		resp := s.dispatch(context.Background(), postForm(t, "/login", body), session.Anonymous)
		assert.Contains(t, resp.Body, constants.MsgBadCredentials)
	}
}

func TestLoginDoesNotCreateAccounts(t *testing.T) {
	s, dir, _ := newTestServer(t)

	s.dispatch(context.Background(), postForm(t, "/login", "username=newguy&password=x"), session.Anonymous)

	assert.Empty(t, dir.createdUsers)
}

func TestLoginSuccessIssuesCookiesAndTabToken(t *testing.T) {
	s, dir, store := newTestServer(t)
	dir.users["carol"] = postgres.User{ID: 7, Username: "carol", Password: "pw"}

	resp := s.dispatch(context.Background(), postForm(t, "/login", "username=carol&password=pw"), session.Anonymous)
	wire := string(resp.Bytes())

	assert.Contains(t, wire, "Set-Cookie: "+constants.SessionCookieName+"=")
	assert.Contains(t, wire, "Set-Cookie: "+constants.TabTokenCookie+"=")
	assert.Contains(t, resp.Body, "tab_token")
	assert.Len(t, store.sessions, 1)

	// The session cookie is HttpOnly; the tab token must stay script readable.
	for _, line := range strings.Split(wire, "\r\n") {
		if strings.HasPrefix(line, "Set-Cookie: "+constants.TabTokenCookie+"=") {
			assert.NotContains(t, line, "HttpOnly")
		}
		if strings.HasPrefix(line, "Set-Cookie: "+constants.SessionCookieName+"=") {
			assert.Contains(t, line, "HttpOnly")
		}
	}
}

func TestRegisterCreatesAndLogsIn(t *testing.T) {
	s, dir, store := newTestServer(t)

	resp := s.dispatch(context.Background(), postForm(t, "/register", "username=dave&password=pw"), session.Anonymous)

	require.Len(t, dir.createdUsers, 1)
	assert.False(t, dir.createdUsers[0].IsAdmin)
	assert.Len(t, store.sessions, 1)
	assert.Contains(t, string(resp.Bytes()), "Set-Cookie: "+constants.SessionCookieName+"=")
}

func TestRegisterReservedAdminUsername(t *testing.T) {
	s, dir, _ := newTestServer(t)

	s.dispatch(context.Background(), postForm(t, "/register", "username=admin&password=pw"), session.Anonymous)

	require.Len(t, dir.createdUsers, 1)
	assert.True(t, dir.createdUsers[0].IsAdmin)
}

func TestRegisterExistingUsername(t *testing.T) {
	s, dir, _ := newTestServer(t)
	dir.users["carol"] = postgres.User{ID: 7, Username: "carol"}

	resp := s.dispatch(context.Background(), postForm(t, "/register", "username=carol&password=pw"), session.Anonymous)

	assert.Contains(t, resp.Body, constants.MsgUserExists)
	assert.Empty(t, dir.createdUsers)
}

func TestLogoutDestroysSessionAndClearsCookies(t *testing.T) {
	s, _, store := newTestServer(t)
	store.sessions["tok"] = session.Session{Token: "tok", UserID: 7}

	resp := s.dispatch(context.Background(), postForm(t, "/logout", ""), userIdentity)
	wire := string(resp.Bytes())

	assert.Equal(t, 302, resp.Status)
	assert.Empty(t, store.sessions)
	assert.Contains(t, wire, constants.SessionCookieName+"=; Path=/; HttpOnly; Max-Age=0")
	assert.Contains(t, wire, constants.TabTokenCookie+"=; Path=/; Max-Age=0")
}

func TestRateValidRating(t *testing.T) {
	s, dir, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), postForm(t, "/rate", "vendor_id=2&rating=4&comment=solid"), userIdentity)

	assert.Equal(t, 302, resp.Status)
	require.Len(t, dir.upserts, 1)
	assert.Equal(t, ratingCall{2, 7, 4, "solid"}, dir.upserts[0])
}

func TestRateOutOfRangeIgnored(t *testing.T) {
	s, dir, _ := newTestServer(t)

	for _, body := range []string{"vendor_id=2&rating=0", "vendor_id=2&rating=6", "vendor_id=&rating=3"} {
		resp := s.dispatch(context.Background(), postForm(t, "/rate", body), userIdentity)
		assert.Equal(t, 302, resp.Status)
	}
	assert.Empty(t, dir.upserts)
}

func TestTabMismatchLandingLeavesSessionValid(t *testing.T) {
	s, _, store := newTestServer(t)
	store.sessions["tok"] = session.Session{Token: "tok", UserID: 7}

	// A mismatched tab lands here; the live session must survive untouched.
	resp := s.dispatch(context.Background(), request(t, "GET /login_required HTTP/1.1\r\n\r\n"), userIdentity)

	assert.Equal(t, 200, resp.Status)
	assert.Len(t, store.sessions, 1)
}

func TestLoginRequiredClearsTabState(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request(t, "GET /login_required HTTP/1.1\r\n\r\n"), session.Anonymous)

	assert.Contains(t, resp.Body, constants.MsgAuthRequired)
	assert.Contains(t, resp.Body, `sessionStorage.removeItem("tab_token")`)
}

func TestHomePageEmbedsTabToken(t *testing.T) {
	s, _, _ := newTestServer(t)

	raw := "GET / HTTP/1.1\r\nCookie: " + constants.TabTokenCookie + "=feedfacefeedface\r\n\r\n"
	resp := s.dispatch(context.Background(), request(t, raw), userIdentity)

	assert.Contains(t, resp.Body, "feedfacefeedface")
}

func TestRoutePrefixMatchAllowsQueryStrings(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := s.dispatch(context.Background(), request(t, "GET /register HTTP/1.1\r\n\r\n"), session.Anonymous)
	assert.Contains(t, resp.Body, "Create an account")
}

func TestLogoutAnonymousStillClearsCookies(t *testing.T) {
	s, _, _ := newTestServer(t)

	// A browser whose session already expired resolves to anonymous but must
	// still be able to shed its stale cookies.
	resp := s.dispatch(context.Background(), postForm(t, "/logout", ""), session.Anonymous)
	wire := string(resp.Bytes())

	assert.Equal(t, 302, resp.Status)
	assert.Contains(t, wire, constants.SessionCookieName+"=; Path=/; HttpOnly; Max-Age=0")
	assert.Contains(t, wire, constants.TabTokenCookie+"=; Path=/; Max-Age=0")
}

func TestHandleConnWritesResponse(t *testing.T) {
	s, _, _ := newTestServer(t)

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(context.Background(), server)
		close(done)
	}()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	wire, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	assert.True(t, strings.HasPrefix(string(wire), "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, string(wire), "Connection: close")
}

// deadlineFailConn rejects write deadlines, like a hijacked or wrapped
// connection might.
type deadlineFailConn struct {
	net.Conn
}

func (c deadlineFailConn) SetWriteDeadline(time.Time) error {
	return errors.New("deadline not supported")
}

func TestHandleConnWritesDespiteDeadlineError(t *testing.T) {
	s, _, _ := newTestServer(t)

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(context.Background(), deadlineFailConn{server})
		close(done)
	}()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	wire, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	assert.True(t, strings.HasPrefix(string(wire), "HTTP/1.1 200 OK\r\n"))
}
