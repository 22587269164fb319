package apitest

import (
	"net/http"
	"sync"
	"time"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAccessTTL is the lifetime of access tokens minted by the server.
const DefaultAccessTTL = 15 * time.Minute

// Upload describes a file part received by a multipart endpoint.
type Upload struct {
	Route    string
	Field    string
	Filename string
	Size     int64
}

type failure struct {
	status int
	body   string
}

// Server is the fake Hubbits backend. It is an http.Handler and is safe for
// concurrent use.
type Server struct {
	mu        sync.Mutex
	router    chi.Router
	log       logging.Logger
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	rawLogin  bool
	rotate    bool
	hashCost  int
	requests  *prometheus.CounterVec

	gen           int
	users         *table[models.User]
	hashes        map[int64][]byte
	pictures      map[int64]string
	refreshTokens map[string]int64
	failures      map[string][]failure
	refreshCalls  int
	uploads       []Upload

	pets          *table[models.Pet]
	adoptions     *table[models.Adoption]
	donations     *table[models.Donation]
	articles      *table[models.Article]
	opportunities *table[models.Opportunity]
	lostFound     *table[models.LostFoundPost]
	signups       map[int64][]models.VolunteerSignUp
	sponsored     map[int64]float64
}

type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAccessTTL sets the lifetime of minted access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithClock replaces time.Now for token minting and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithSecret sets the HS256 signing key. A random one is used otherwise.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithRawLogin makes login answer with the bare access token as text, the
// way the production backend does, instead of a JSON token pair.
func WithRawLogin() Option {
	return func(s *Server) { s.rawLogin = true }
}

// WithRefreshRotation issues a new refresh token on every refresh.
func WithRefreshRotation() Option {
	return func(s *Server) { s.rotate = true }
}

// WithRegisterer counts served requests in hubbits_mockapi_requests_total.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubbits_mockapi_requests_total",
			Help: "Requests served by the mock Hubbits API.",
		}, []string{"method", "route", "status"})
		reg.MustRegister(s.requests)
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		log:           logging.Discard(),
		secret:        []byte(uuid.NewString()),
		accessTTL:     DefaultAccessTTL,
		now:           time.Now,
		hashCost:      bcrypt.MinCost,
		users:         newTable[models.User](),
		hashes:        make(map[int64][]byte),
		pictures:      make(map[int64]string),
		refreshTokens: make(map[string]int64),
		failures:      make(map[string][]failure),
		pets:          newTable[models.Pet](),
		adoptions:     newTable[models.Adoption](),
		donations:     newTable[models.Donation](),
		articles:      newTable[models.Article](),
		opportunities: newTable[models.Opportunity](),
		lostFound:     newTable[models.LostFoundPost](),
		signups:       make(map[int64][]models.VolunteerSignUp),
		sponsored:     make(map[int64]float64),
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	root := chi.NewRouter()

	root.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
		s.injectFailures,
	)

	root.Route("/api", func(r chi.Router) {
		registerAuthRoutes(r, s)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			registerUserRoutes(r, s)
			registerEntityRoutes(r, s)
		})
	})
	return root
}

func registerAuthRoutes(r chi.Router, s *Server) {
	r.Post("/auth/login", s.login)
	r.Post("/auth/refresh", s.refresh)
	r.Post("/auth/signup", s.signup)
	r.Get("/auth/check-username", s.checkUsername)
	r.Get("/auth/check-email", s.checkEmail)
}

func registerUserRoutes(r chi.Router, s *Server) {
	r.Get("/users/me", s.me)
	r.Put("/users/{id}", s.updateUser)
	r.Post("/users/change-password", s.changePassword)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/users", s.listUsers)
		r.Post("/users", s.createUser)
		r.Delete("/users/{id}", s.deleteUser)
	})
}

func registerEntityRoutes(r chi.Router, s *Server) {
	pets := &entity[models.Pet]{
		s: s, rows: s.pets, name: "Pet", flatCreate: true, filePart: "photo",
		setImage: func(p models.Pet, url string) models.Pet { p.Photo = url; return p },
	}
	r.Get("/pet/getAllPets", pets.list)
	r.Post("/pet/postpetrecord", pets.create)
	r.Put("/pet/putPetDetails", pets.update)
	r.Delete("/pet/deletePetDetails/{id}", pets.remove)
	r.Put("/petSponsor/putPetSponsorDetails/{id}", s.sponsor)

	crud(r, "/adoptions", &entity[models.Adoption]{s: s, rows: s.adoptions, name: "Adoption"})
	crud(r, "/donations", &entity[models.Donation]{s: s, rows: s.donations, name: "Donation"})
	crud(r, "/newsfeed", &entity[models.Article]{
		s: s, rows: s.articles, name: "Article", part: "article", filePart: "image",
		setImage: func(a models.Article, url string) models.Article { a.ImageURL = url; return a },
	})
	crud(r, "/lostandfound", &entity[models.LostFoundPost]{
		s: s, rows: s.lostFound, name: "Report", flat: true, filePart: "imagefile",
		setImage: func(p models.LostFoundPost, url string) models.LostFoundPost { p.ImageURL = url; return p },
	})

	opps := &entity[models.Opportunity]{
		s: s, rows: s.opportunities, name: "Opportunity", part: "opportunity", flatCreate: true,
		filePart: "volunteerImage",
		setImage: func(o models.Opportunity, url string) models.Opportunity { o.VolunteerImageURL = url; return o },
	}
	r.Get("/volunteer/opportunities", opps.list)
	r.Post("/volunteer/opportunity", opps.create)
	r.Put("/volunteer/opportunity/{id}", opps.update)
	r.Delete("/volunteer/opportunity/{id}", opps.remove)
	r.Get("/volunteer/opportunity/{id}/signups", s.signupCount)
	r.Post("/volunteer/signup/{id}", s.volunteerSignup)
}

func crud[T record[T]](r chi.Router, base string, e *entity[T]) {
	r.Get(base, e.list)
	r.Post(base, e.create)
	r.Put(base+"/{id}", e.update)
	r.Delete(base+"/{id}", e.remove)
}

// AddUser seeds an account and returns it with its id. An empty role
// means ROLE_USER.
func (s *Server) AddUser(u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.User{}, err
	}
	if u.Role == "" {
		u.Role = string(models.RoleUser)
	}
	u.Password = ""

	s.mu.Lock()
	defer s.mu.Unlock()
	u = s.users.insert(u)
	s.hashes[u.UserID] = hash
	return u, nil
}

// IssueTokens mints a session for userID without going through login.
func (s *Server) IssueTokens(userID int64) (models.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.get(userID)
	if !ok {
		return models.TokenPair{}, errUnknownUser
	}
	access, err := s.mintAccess(u)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: s.mintRefresh(u.UserID)}, nil
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]int64)
}

// FailNext makes the next request for method and path answer with status
// and body instead of reaching its handler. Calls queue up.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Uploads returns the file parts received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) AddPet(p models.Pet) models.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pets.insert(p)
}

func (s *Server) Pets() []models.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pets.list()
}

func (s *Server) AddOpportunity(o models.Opportunity) models.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opportunities.insert(o)
}

func (s *Server) Articles() []models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.articles.list()
}

func (s *Server) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.list()
}

// Signups returns the volunteer forms received for opportunity id.
func (s *Server) Signups(id int64) []models.VolunteerSignUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.VolunteerSignUp(nil), s.signups[id]...)
}

// Sponsored returns the total pledged to pet pid.
func (s *Server) Sponsored(pid int64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sponsored[pid]
}
