package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/jayg2309/bingekaro/internal/config"
	"github.com/jayg2309/bingekaro/internal/credential"
	"github.com/jayg2309/bingekaro/internal/handler"
	"github.com/jayg2309/bingekaro/internal/middleware"
	"github.com/jayg2309/bingekaro/internal/omdb"
	"github.com/jayg2309/bingekaro/internal/repository"
	"github.com/jayg2309/bingekaro/internal/router"
	"github.com/jayg2309/bingekaro/internal/service"
	"github.com/jayg2309/bingekaro/internal/storage"
	"github.com/jayg2309/bingekaro/internal/testutil"
	"github.com/jayg2309/bingekaro/internal/token"
	"github.com/jayg2309/bingekaro/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCatalog struct{}

func (stubCatalog) SearchByTitle(_ context.Context, query, _ string, page int) (*omdb.SearchPage, error) {
	if query == "down" {
		return nil, omdb.ErrUnavailable
	}
	return &omdb.SearchPage{
		Results:      []omdb.Summary{{Title: "Alien", Year: "1979", ImdbID: "tt0078748", Type: "movie"}},
		Page:         page,
		TotalResults: 1,
		TotalPages:   1,
	}, nil
}

func (stubCatalog) GetByID(_ context.Context, id string) (*omdb.Detail, error) {
	if id != "tt0078748" {
		return nil, omdb.ErrNotFound
	}
	return &omdb.Detail{Title: "Alien", ImdbID: id, Genre: "Horror, Sci-Fi", Type: "movie"}, nil
}

type app struct {
	t      *testing.T
	engine *gin.Engine
}

func newApp(t *testing.T, opts ...func(*config.Config)) *app {
	t.Helper()
	cfg := &config.Config{
		Env:                 "test",
		AppSecret:           "handler-test-secret",
		JWTExpiry:           time.Hour,
		RateLimitMax:        1000,
		RateLimitWindow:     time.Minute,
		LoginRateLimitMax:   1000,
		SecretAttemptLimit:  3,
		SecretAttemptWindow: time.Minute,
		UploadDir:           t.TempDir(),
		UploadURLPrefix:     "/uploads/profiles",
		MaxUploadBytes:      1 << 20,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	repos := repository.NewRepositories(testutil.NewDB(t))
	hasher := credential.NewHasher(bcrypt.MinCost, 0)
	tokens, err := token.NewIssuer(cfg.AppSecret, cfg.JWTExpiry)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	avatars, err := storage.NewLocalAvatars(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxUploadBytes)
	if err != nil {
		t.Fatalf("NewLocalAvatars: %v", err)
	}
	users := service.NewUserService(repos.User, repos.Favorite, hasher, tokens, avatars, cfg.MaxUploadBytes, nil)
	h := handler.NewHandler(handler.Deps{
		Config:  cfg,
		Auth:    middleware.NewAuthenticator(tokens, users, nil),
		Users:   users,
		Lists:   service.NewListService(repos.List, repos.User, hasher, nil),
		Access:  service.NewAccessEvaluator(repos.List, hasher, utils.NewAttemptGuard(100, cfg.SecretAttemptLimit, cfg.SecretAttemptWindow), nil),
		Search:  service.NewSearchService(stubCatalog{}, nil),
		Avatars: avatars,
	})
	return &app{t: t, engine: router.New(h, middleware.NewMemoryLimiter(cfg.RateLimitWindow))}
}

type envelope struct {
	Code             int               `json:"code"`
	Message          string            `json:"message"`
	Data             json.RawMessage   `json:"data"`
	Success          bool              `json:"success"`
	Errors           []json.RawMessage `json:"errors"`
	RequiresPassword bool              `json:"requiresPassword"`
}

func (a *app) call(method, path, tok string, body interface{}) (int, envelope) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, tok)
}

func (a *app) send(req *http.Request, tok string) (int, envelope) {
	a.t.Helper()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL.Path, w.Body.String(), err)
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func (a *app) register(username string) (string, uint) {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "User " + username,
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", username, code, env.Message)
	}
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decode(a.t, env.Data, &data)
	return data.Token, data.User.ID
}

type listBody struct {
	List struct {
		ID        uint   `json:"id"`
		Name      string `json:"name"`
		IsPrivate bool   `json:"isPrivate"`
		IsOwner   bool   `json:"isOwner"`
		ViewCount int64  `json:"viewCount"`
		LikeCount int64  `json:"likeCount"`
		ItemCount int    `json:"itemCount"`
		Items     []struct {
			ID     string `json:"id"`
			ImdbID string `json:"imdbId"`
		} `json:"items"`
	} `json:"list"`
}

func (a *app) createList(tok string, body map[string]interface{}) listBody {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/recommendations", tok, body)
	if code != http.StatusCreated {
		a.t.Fatalf("create list: %d %s", code, env.Message)
	}
	var out listBody
	decode(a.t, env.Data, &out)
	return out
}

func listPath(id uint, suffix string) string {
	return "/api/recommendations/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestHorrorPicksOverHTTP(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	bob, _ := a.register("bob")

	created := a.createList(alice, map[string]interface{}{
		"name": "Horror Picks", "isPrivate": true, "password": "spook1", "tags": []string{"horror"},
	})
	id := created.List.ID
	if !created.List.IsPrivate || !created.List.IsOwner {
		t.Fatalf("unexpected created list: %+v", created.List)
	}

	code, env := a.call(http.MethodGet, listPath(id, ""), bob, nil)
	if code != http.StatusUnauthorized || !env.RequiresPassword || env.Message != "Password required for private list" {
		t.Fatalf("no secret: %d %+v", code, env)
	}
	code, env = a.call(http.MethodGet, listPath(id, "?password=wrong"), "", nil)
	if code != http.StatusUnauthorized || !env.RequiresPassword {
		t.Fatalf("wrong secret: %d %+v", code, env)
	}

	code, env = a.call(http.MethodGet, listPath(id, "?password=spook1"), bob, nil)
	if code != http.StatusOK {
		t.Fatalf("correct secret: %d %s", code, env.Message)
	}
	var got listBody
	decode(t, env.Data, &got)
	if got.List.ViewCount != 1 || got.List.IsOwner {
		t.Fatalf("unexpected view: %+v", got.List)
	}
	if bytes.Contains(env.Data, []byte("secret")) || bytes.Contains(env.Data, []byte("$2a$")) {
		t.Fatalf("secret material in response: %s", env.Data)
	}

	code, env = a.call(http.MethodGet, listPath(id, ""), alice, nil)
	decode(t, env.Data, &got)
	if code != http.StatusOK || !got.List.IsOwner || got.List.ViewCount != 1 {
		t.Fatalf("owner read: %d %+v", code, got.List)
	}

	// 私有列表不在公开浏览中
	code, env = a.call(http.MethodGet, "/api/recommendations/public", bob, nil)
	var page struct {
		Lists      []json.RawMessage `json:"lists"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decode(t, env.Data, &page)
	if code != http.StatusOK || len(page.Lists) != 0 || page.Pagination.Total != 0 {
		t.Fatalf("public lists: %d %s", code, env.Data)
	}
}

func TestSecretAttemptsOverHTTP(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	id := a.createList(alice, map[string]interface{}{"name": "Vault", "isPrivate": true, "password": "spook1"}).List.ID

	for i := 0; i < 3; i++ {
		if code, _ := a.call(http.MethodGet, listPath(id, "?password=nope"), "", nil); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: %d", i+1, code)
		}
	}
	if code, _ := a.call(http.MethodGet, listPath(id, "?password=spook1"), "", nil); code != http.StatusTooManyRequests {
		t.Fatalf("blocked attempt: %d", code)
	}
	// 本人读取不受影响
	if code, _ := a.call(http.MethodGet, listPath(id, ""), alice, nil); code != http.StatusOK {
		t.Fatalf("owner read: %d", code)
	}
}

func TestForwardedForDoesNotResetSecretAttempts(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	id := a.createList(alice, map[string]interface{}{"name": "Vault", "isPrivate": true, "password": "spook1"}).List.ID

	blocked := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, listPath(id, "?password=nope"), nil)
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i+1))
		req.Header.Set("X-Real-IP", "10.0.1."+strconv.Itoa(i+1))
		if code, _ := a.send(req, ""); code == http.StatusTooManyRequests {
			blocked++
		}
	}
	// 限制为 3 次，之后的 7 次都应被拦截
	if blocked != 7 {
		t.Fatalf("blocked %d of 10 wrong secrets with rotating forwarded headers, want 7", blocked)
	}
}

func TestTrustedProxyForwardsClientAddress(t *testing.T) {
	// httptest 请求的 RemoteAddr 是 192.0.2.1
	a := newApp(t, func(c *config.Config) { c.TrustedProxies = []string{"192.0.2.1"} })
	alice, _ := a.register("alice")
	id := a.createList(alice, map[string]interface{}{"name": "Vault", "isPrivate": true, "password": "spook1"}).List.ID

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, listPath(id, "?password=nope"), nil)
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		if code, _ := a.send(req, ""); code != http.StatusUnauthorized {
			t.Fatalf("client %d behind trusted proxy: %d, want 401", i+1, code)
		}
	}
}

func TestTop10LikesOverHTTP(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	bob, _ := a.register("bob")
	id := a.createList(alice, map[string]interface{}{"name": "Top 10"}).List.ID

	for want := int64(1); want <= 2; want++ {
		code, env := a.call(http.MethodPost, listPath(id, "/like"), bob, nil)
		var data struct {
			LikeCount int64 `json:"likeCount"`
		}
		decode(t, env.Data, &data)
		if code != http.StatusOK || data.LikeCount != want {
			t.Fatalf("like %d: %d %s", want, code, env.Data)
		}
	}
	if code, env := a.call(http.MethodPost, listPath(id, "/like"), alice, nil); code != http.StatusForbidden || env.Message != "Cannot like your own list" {
		t.Fatalf("owner like: %d %s", code, env.Message)
	}
	if code, _ := a.call(http.MethodPost, listPath(id, "/like"), "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous like: %d", code)
	}
}

func TestListMutationsOverHTTP(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	bob, _ := a.register("bob")
	id := a.createList(alice, map[string]interface{}{"name": "Top 10"}).List.ID

	item := map[string]interface{}{"imdbId": "tt0078748", "title": "Alien", "type": "movie"}
	if code, _ := a.call(http.MethodPost, listPath(id, "/items"), bob, item); code != http.StatusForbidden {
		t.Fatalf("non-owner add: %d", code)
	}
	code, env := a.call(http.MethodPost, listPath(id, "/items"), alice, item)
	if code != http.StatusOK {
		t.Fatalf("add item: %d %s", code, env.Message)
	}
	var got listBody
	decode(t, env.Data, &got)
	if len(got.List.Items) != 1 || got.List.Items[0].ImdbID != "tt0078748" {
		t.Fatalf("items: %s", env.Data)
	}
	if code, _ := a.call(http.MethodPost, listPath(id, "/items"), alice, item); code != http.StatusConflict {
		t.Fatalf("duplicate add: %d", code)
	}

	code, env = a.call(http.MethodDelete, listPath(id, "/items/"+got.List.Items[0].ID), alice, nil)
	decode(t, env.Data, &got)
	if code != http.StatusOK || len(got.List.Items) != 0 {
		t.Fatalf("remove item: %d %s", code, env.Data)
	}

	code, env = a.call(http.MethodPut, listPath(id, ""), alice, map[string]interface{}{"isPrivate": true})
	if code != http.StatusBadRequest || len(env.Errors) == 0 {
		t.Fatalf("private without password: %d %+v", code, env)
	}
	if code, _ := a.call(http.MethodPut, listPath(id, ""), bob, map[string]interface{}{"name": "x"}); code != http.StatusForbidden {
		t.Fatalf("non-owner update: %d", code)
	}

	if code, _ := a.call(http.MethodDelete, listPath(id, ""), alice, nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code, _ := a.call(http.MethodGet, listPath(id, ""), alice, nil); code != http.StatusNotFound {
		t.Fatalf("read deleted: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/recommendations/abc", "", nil); code != http.StatusNotFound {
		t.Fatalf("bad id: %d", code)
	}
}

func TestDiscoveryOverHTTP(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	bob, _ := a.register("bob")
	a.createList(alice, map[string]interface{}{"name": "Cozy Weekend"})
	a.createList(alice, map[string]interface{}{"name": "Cozy Secret", "isPrivate": true, "password": "hush1"})

	code, env := a.call(http.MethodGet, "/api/recommendations/search?q=cozy", bob, nil)
	var found struct {
		Lists []struct {
			Name  string          `json:"name"`
			Items json.RawMessage `json:"items"`
		} `json:"lists"`
	}
	decode(t, env.Data, &found)
	if code != http.StatusOK || len(found.Lists) != 1 || found.Lists[0].Name != "Cozy Weekend" || found.Lists[0].Items != nil {
		t.Fatalf("search: %d %s", code, env.Data)
	}

	code, env = a.call(http.MethodGet, "/api/recommendations/search?q=%5B", bob, nil)
	found.Lists = nil
	decode(t, env.Data, &found)
	if code != http.StatusOK || len(found.Lists) != 0 {
		t.Fatalf("bracket search: %d %s", code, env.Data)
	}

	code, env = a.call(http.MethodGet, "/api/recommendations/user/alice", "", nil)
	decode(t, env.Data, &found)
	if code != http.StatusOK || len(found.Lists) != 2 {
		t.Fatalf("profile lists: %d %s", code, env.Data)
	}

	code, env = a.call(http.MethodGet, "/api/recommendations", alice, nil)
	decode(t, env.Data, &found)
	if code != http.StatusOK || len(found.Lists) != 2 {
		t.Fatalf("my lists: %d %s", code, env.Data)
	}
	if code, _ := a.call(http.MethodGet, "/api/recommendations", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("my lists anonymous: %d", code)
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	tok, _ := a.register("alice")

	if code, env := a.call(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Again", "username": "alice", "email": "x@example.com", "password": "secret1",
	}); code != http.StatusConflict {
		t.Fatalf("duplicate register: %d %s", code, env.Message)
	}
	code, env := a.call(http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "alice@example.com", "password": "secret1"})
	if code != http.StatusOK || env.Message != "Login successful" {
		t.Fatalf("login: %d %s", code, env.Message)
	}
	if code, env := a.call(http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "alice", "password": "nope"}); code != http.StatusUnauthorized || env.Message != "Invalid credentials" {
		t.Fatalf("bad login: %d %s", code, env.Message)
	}

	code, env = a.call(http.MethodPost, "/api/auth/check-username", "", map[string]string{"username": "alice"})
	var avail struct {
		Available bool `json:"available"`
	}
	decode(t, env.Data, &avail)
	if code != http.StatusOK || avail.Available {
		t.Fatalf("check-username: %d %s", code, env.Data)
	}

	if code, _ := a.call(http.MethodGet, "/api/auth/me", tok, nil); code != http.StatusOK {
		t.Fatalf("me: %d", code)
	}
	if code, _ := a.call(http.MethodPost, "/api/auth/refresh", tok, nil); code != http.StatusOK {
		t.Fatalf("refresh: %d", code)
	}

	if code, _ := a.call(http.MethodDelete, "/api/users/account", tok, nil); code != http.StatusOK {
		t.Fatalf("deactivate: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/auth/me", tok, nil); code != http.StatusUnauthorized {
		t.Fatalf("me after deactivate: %d", code)
	}
}

func TestProfileAndFavoritesOverHTTP(t *testing.T) {
	a := newApp(t)
	tok, _ := a.register("alice")

	code, env := a.call(http.MethodPut, "/api/users/profile", tok, map[string]string{"bio": "Horror fan"})
	if code != http.StatusOK {
		t.Fatalf("update profile: %d %s", code, env.Message)
	}
	code, env = a.call(http.MethodPut, "/api/users/password", tok, map[string]string{"currentPassword": "wrong", "newPassword": "secret2"})
	if code != http.StatusBadRequest || env.Message != "Current password is incorrect" {
		t.Fatalf("wrong current password: %d %s", code, env.Message)
	}

	fav := map[string]string{"imdbId": "tt0078748", "title": "Alien"}
	if code, _ := a.call(http.MethodPost, "/api/users/favorites/movies", tok, fav); code != http.StatusOK {
		t.Fatalf("add favorite: %d", code)
	}
	if code, _ := a.call(http.MethodPost, "/api/users/favorites/movies", tok, fav); code != http.StatusConflict {
		t.Fatalf("duplicate favorite: %d", code)
	}
	if code, _ := a.call(http.MethodPost, "/api/users/favorites/books", tok, fav); code != http.StatusNotFound {
		t.Fatalf("unknown kind: %d", code)
	}
	code, env = a.call(http.MethodGet, "/api/users/favorites", tok, nil)
	var favs struct {
		Favorites struct {
			Movies []json.RawMessage `json:"movies"`
			Anime  []json.RawMessage `json:"anime"`
		} `json:"favorites"`
	}
	decode(t, env.Data, &favs)
	if code != http.StatusOK || len(favs.Favorites.Movies) != 1 || favs.Favorites.Anime == nil {
		t.Fatalf("favorites: %d %s", code, env.Data)
	}
	if code, _ := a.call(http.MethodDelete, "/api/users/favorites/movies/tt0078748", tok, nil); code != http.StatusOK {
		t.Fatalf("remove favorite: %d", code)
	}
	if code, _ := a.call(http.MethodDelete, "/api/users/favorites/movies/tt0078748", tok, nil); code != http.StatusNotFound {
		t.Fatalf("remove missing favorite: %d", code)
	}
}

func avatarRequest(t *testing.T, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="profilePicture"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/users/profile-picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAvatarUploadOverHTTP(t *testing.T) {
	a := newApp(t)
	tok, _ := a.register("alice")

	if code, _ := a.send(avatarRequest(t, "text/plain", []byte("hi")), tok); code != http.StatusBadRequest {
		t.Fatalf("non-image: %d", code)
	}
	code, env := a.send(avatarRequest(t, "image/png", []byte("\x89PNG fake")), tok)
	if code != http.StatusOK {
		t.Fatalf("upload: %d %s", code, env.Message)
	}
	var data struct {
		ProfilePicture string `json:"profilePicture"`
	}
	decode(t, env.Data, &data)
	if !strings.HasPrefix(data.ProfilePicture, "/uploads/profiles/profile-") {
		t.Fatalf("unexpected url %q", data.ProfilePicture)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, data.ProfilePicture, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("static avatar: %d", w.Code)
	}

	if code, _ := a.call(http.MethodDelete, "/api/users/profile-picture", tok, nil); code != http.StatusOK {
		t.Fatalf("remove avatar: %d", code)
	}
}

func TestSearchOverHTTP(t *testing.T) {
	a := newApp(t)

	code, env := a.call(http.MethodGet, "/api/search?q=alien", "", nil)
	var page struct {
		Results []struct {
			ImdbID string `json:"imdbId"`
		} `json:"results"`
	}
	decode(t, env.Data, &page)
	if code != http.StatusOK || len(page.Results) != 1 {
		t.Fatalf("search: %d %s", code, env.Data)
	}
	if code, _ := a.call(http.MethodGet, "/api/search", "", nil); code != http.StatusBadRequest {
		t.Fatalf("empty query: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/search?q=down", "", nil); code != http.StatusBadGateway {
		t.Fatalf("upstream down: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/search/movies/tt0078748", "", nil); code != http.StatusOK {
		t.Fatalf("movie detail: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/search/tv/tt404", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing detail: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/search/genres/series", "", nil); code != http.StatusOK {
		t.Fatalf("genres: %d", code)
	}
	if code, _ := a.call(http.MethodGet, "/api/search/recommendations/movie/tt0078748", "", nil); code != http.StatusOK {
		t.Fatalf("recommendations: %d", code)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	a := newApp(t)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if code, env := a.call(http.MethodGet, "/api/nope", "", nil); code != http.StatusNotFound || env.Success {
		t.Fatalf("unknown route: %d %+v", code, env)
	}
}
