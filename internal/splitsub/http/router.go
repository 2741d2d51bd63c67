package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/splitsub/internal/splitsub/service"
	"github.com/aussiebroadwan/splitsub/internal/splitsub/store"
	"github.com/aussiebroadwan/splitsub/pkg/authz"
	"github.com/aussiebroadwan/splitsub/pkg/httpx"
	"github.com/aussiebroadwan/splitsub/pkg/jwtx"
	"github.com/aussiebroadwan/splitsub/pkg/ratelimit"
	"github.com/aussiebroadwan/splitsub/pkg/sanitize"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
	"github.com/aussiebroadwan/splitsub/pkg/validate"
)

// Pinger is an optional dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are the request-independent knobs the router needs.
type Options struct {
	BuildVersion  string
	Production    bool
	TrustProxy    bool
	CORSOrigins   []string
	LookupTimeout time.Duration
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	opts      Options
	startTime time.Time
	logger    *slog.Logger

	store     store.Store
	tokens    *jwtx.TokenService
	limiter   *ratelimit.Limiter
	sanitizer *sanitize.Sanitizer
	validator *validate.Validator
	responder *httpx.Responder

	AuthService *service.AuthService
	UserService *service.UserService
	Throttle    *ratelimit.Throttle // optional global flood guard
	Cache       Pinger              // optional, reported by /readyz
}

func NewRouter(
	opts Options,
	st store.Store,
	tokens *jwtx.TokenService,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:       http.NewServeMux(),
		opts:      opts,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
		tokens:    tokens,
		limiter:   limiter,
		sanitizer: sanitize.New(),
		validator: validate.New(),
		responder: &httpx.Responder{Production: opts.Production, TrustProxy: opts.TrustProxy},
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Throttle and Cache must be set before calling it.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(r.responder),
		httpx.SecurityHeaders(r.opts.Production),
		httpx.CORS(r.opts.CORSOrigins),
	}
	if r.Throttle != nil {
		r.middlewares = append(r.middlewares, httpx.Throttle(r.Throttle, httpx.IPKeyExtractor(r.opts.TrustProxy), r.responder))
	}
	r.middlewares = append(r.middlewares, httpx.RequireJSON(r.responder))

	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) route() httpx.Route {
	return httpx.Route{Responder: r.responder}
}

func (r *Router) limit(class ratelimit.Class) httpx.Stage {
	return httpx.RateLimit(r.limiter, class, httpx.IPKeyExtractor(r.opts.TrustProxy))
}

func (r *Router) authenticate() httpx.Stage {
	return httpx.Authenticate(r.tokens.AccessVerifier(), r.UserService, r.lookupTimeout())
}

func (r *Router) lookupTimeout() httpx.AuthOption {
	return httpx.WithLookupTimeout(r.opts.LookupTimeout)
}

func (r *Router) validate(rules ...validate.Rule) httpx.Stage {
	return httpx.Validate(r.validator, rules...)
}

func (r *Router) registerAuth() {
	h := &authHandler{auth: r.AuthService}

	// Unauthenticated credential endpoints get strict scanning and the
	// tightest limits.
	register := r.route()
	register.Sanitize = httpx.StrictSanitize(r.sanitizer)
	register.RateLimit = r.limit(ratelimit.ClassRegistration)
	register.Validate = r.validate(validate.Body[validate.RegisterRequest]())
	r.Mux.Handle("POST /v1/auth/register", register.Handle(h.register))

	login := r.route()
	login.Sanitize = httpx.StrictSanitize(r.sanitizer)
	login.RateLimit = r.limit(ratelimit.ClassLogin)
	login.Validate = r.validate(validate.Body[validate.LoginRequest]())
	r.Mux.Handle("POST /v1/auth/login", login.Handle(h.login))

	refresh := r.route()
	refresh.Sanitize = httpx.Sanitize(r.sanitizer)
	refresh.RateLimit = r.limit(ratelimit.ClassSensitive)
	refresh.Validate = r.validate(validate.Body[validate.RefreshRequest]())
	r.Mux.Handle("POST /v1/auth/refresh", refresh.Handle(h.refresh))

	logout := r.route()
	logout.Authenticate = httpx.OptionalAuthenticate(r.tokens.AccessVerifier(), r.UserService, r.lookupTimeout())
	r.Mux.Handle("POST /v1/auth/logout", logout.Handle(h.logout))

	profile := r.route()
	profile.Authenticate = r.authenticate()
	r.Mux.Handle("GET /v1/auth/profile", profile.Handle(h.profile))

	updateProfile := r.route()
	updateProfile.Sanitize = httpx.StrictSanitize(r.sanitizer)
	updateProfile.RateLimit = r.limit(ratelimit.ClassSensitive)
	updateProfile.Authenticate = r.authenticate()
	updateProfile.Validate = r.validate(validate.Body[validate.UpdateProfileRequest]())
	r.Mux.Handle("PUT /v1/auth/profile", updateProfile.Handle(h.updateProfile))

	changePassword := r.route()
	changePassword.Sanitize = httpx.StrictSanitize(r.sanitizer)
	changePassword.RateLimit = r.limit(ratelimit.ClassSensitive)
	changePassword.Authenticate = r.authenticate()
	changePassword.Validate = r.validate(validate.Body[validate.ChangePasswordRequest]())
	r.Mux.Handle("POST /v1/auth/change-password", changePassword.Handle(h.changePassword))

	admin := r.route()
	admin.Authenticate = r.authenticate()
	admin.Authorize = httpx.RequireRoles(authz.RoleAdmin)
	r.Mux.Handle("GET /v1/auth/admin", admin.Handle(h.admin))
}

func (r *Router) registerUsers() {
	h := &usersHandler{users: r.UserService}

	me := r.route()
	me.Authenticate = r.authenticate()
	r.Mux.Handle("GET /v1/users/me", me.Handle(h.me))

	list := r.route()
	list.Authenticate = r.authenticate()
	list.Authorize = httpx.RequireRoles(authz.RoleAdmin)
	list.Validate = r.validate(validate.Query[validate.Pagination]())
	r.Mux.Handle("GET /v1/users", list.Handle(h.list))

	get := r.route()
	get.Authenticate = r.authenticate()
	get.Validate = r.validate(validate.Params[validate.UserIDParam]())
	r.Mux.Handle("GET /v1/users/{id}", get.Handle(h.get))

	update := r.route()
	update.Sanitize = httpx.StrictSanitize(r.sanitizer, "id")
	update.RateLimit = r.limit(ratelimit.ClassSensitive)
	update.Authenticate = r.authenticate()
	update.Validate = r.validate(
		validate.Params[validate.UserIDParam](),
		validate.Body[validate.UpdateProfileRequest](),
	)
	r.Mux.Handle("PUT /v1/users/{id}", update.Handle(h.update))

	del := r.route()
	del.Authenticate = r.authenticate()
	del.Authorize = httpx.RequireRoles(authz.RoleAdmin)
	del.Validate = r.validate(validate.Params[validate.UserIDParam]())
	r.Mux.Handle("DELETE /v1/users/{id}", del.Handle(h.delete))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.opts.BuildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.opts.BuildVersion, r.store, r.Cache))
}
