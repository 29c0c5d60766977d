package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Query API Paths
const (
	VersionRoutePath    = "/v1/"
	HealthRoutePath     = "/v1/health"
	AccountsRoutePath   = "/v1/query/accounts"
	RoundRoutePath      = "/v1/query/round"
	LastRoundRoutePath  = "/v1/query/last-round"
	DelegatesRoutePath  = "/v1/query/delegates"
	DelegateRoutePath   = "/v1/query/delegate/:id"
	ClientsRoutePath    = "/v1/query/clients"
	BlockRoutePath      = "/v1/query/block/:id/:height"
	StateDiffRoutePath  = "/v1/query/state-diff/:id"
	idParamName         = "id"
	heightParamName     = "height"
	formatQueryName     = "format"
	htmlFormat          = "html"
	headHeightParameter = "latest"
)

// Query API Route Names
const (
	VersionRouteName   = "version"
	HealthRouteName    = "health"
	AccountsRouteName  = "accounts"
	RoundRouteName     = "round"
	LastRoundRouteName = "last-round"
	DelegatesRouteName = "delegates"
	DelegateRouteName  = "delegate"
	ClientsRouteName   = "clients"
	BlockRouteName     = "block"
	StateDiffRouteName = "state-diff"
)

// routes contains the method and path for a route
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths.
var routePaths = routes{
	VersionRouteName:   {Method: http.MethodGet, Path: VersionRoutePath},
	HealthRouteName:    {Method: http.MethodGet, Path: HealthRoutePath},
	AccountsRouteName:  {Method: http.MethodGet, Path: AccountsRoutePath},
	RoundRouteName:     {Method: http.MethodGet, Path: RoundRoutePath},
	LastRoundRouteName: {Method: http.MethodGet, Path: LastRoundRoutePath},
	DelegatesRouteName: {Method: http.MethodGet, Path: DelegatesRoutePath},
	DelegateRouteName:  {Method: http.MethodGet, Path: DelegateRoutePath},
	ClientsRouteName:   {Method: http.MethodGet, Path: ClientsRoutePath},
	BlockRouteName:     {Method: http.MethodGet, Path: BlockRoutePath},
	StateDiffRouteName: {Method: http.MethodGet, Path: StateDiffRoutePath},
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with predefined route handlers.
func createRouter(s *Server) *httprouter.Router {
	var r = httpRouteHandlers{
		VersionRouteName:   s.Version,
		HealthRouteName:    s.Health,
		AccountsRouteName:  s.Accounts,
		RoundRouteName:     s.Round,
		LastRoundRouteName: s.LastRound,
		DelegatesRouteName: s.Delegates,
		DelegateRouteName:  s.Delegate,
		ClientsRouteName:   s.Clients,
		BlockRouteName:     s.Block,
		StateDiffRouteName: s.StateDiff,
	}
	router := httprouter.New()
	for name, handler := range r {
		path := routePaths[name]
		router.Handle(path.Method, path.Path, logHandler{path.Path, handler, s.logger}.Handle)
	}
	return router
}
