// Package testutil holds an in-memory stand-in for the tool request backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

const (
	CookieName     = "session"
	DeletePassword = "letmein"
)

type tool struct {
	ID          int64
	Name        string
	Description string
	Quantity    int
	CategoryID  int64
}

type category struct {
	ID   int64
	Name string
}

type line struct {
	ID       int64
	ToolID   int64
	Quantity int
	Status   string
}

type request struct {
	ID           int64
	UserID       int64
	Status       string
	Lines        []*line
	Requested    time.Time
	Approved     *time.Time
	Rejected     *time.Time
	ApprovedByID int64
}

type account struct {
	User     users.User
	Password string
}

type failure struct {
	status int
	detail string
}

// Backend serves the subset of the HTTP API the bot uses.
type Backend struct {
	mu         sync.Mutex
	srv        *httptest.Server
	categories []category
	tools      map[int64]*tool
	requests   []*request
	accounts   []account
	logs       map[int64][]map[string]any
	failures   map[string]failure
	gates      map[string]chan struct{}
	calls      []string
	seq        int64
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		tools:    map[int64]*tool{},
		logs:     map[int64][]map[string]any{},
		failures: map[string]failure{},
		gates:    map[string]chan struct{}{},
	}
	b.srv = httptest.NewServer(b.router())
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) URL() string { return b.srv.URL }

func (b *Backend) next() int64 {
	b.seq++
	return b.seq
}

// AddUser registers an account; the session cookie value is "u<id>".
func (b *Backend) AddUser(u users.User, password string) users.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.next()
	}
	b.accounts = append(b.accounts, account{User: u, Password: password})
	return u
}

// Cookie of an already registered user, for tests that skip /api/login.
func Cookie(userID int64) string { return "u" + strconv.FormatInt(userID, 10) }

// SessionFor builds the session a successful login of u would produce.
func SessionFor(u users.User) session.Session {
	return session.Session{Cookies: []session.Cookie{{Name: CookieName, Value: Cookie(u.ID)}}, User: u}
}

func (b *Backend) AddCategory(name string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next()
	b.categories = append(b.categories, category{ID: id, Name: name})
	return id
}

// AddTool creates the category on first use.
func (b *Backend) AddTool(categoryName, name string, stock int) int64 {
	b.mu.Lock()
	var catID int64
	for _, c := range b.categories {
		if c.Name == categoryName {
			catID = c.ID
		}
	}
	b.mu.Unlock()
	if catID == 0 && categoryName != "" {
		catID = b.AddCategory(categoryName)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next()
	b.tools[id] = &tool{ID: id, Name: name, Quantity: stock, CategoryID: catID}
	return id
}

func (b *Backend) SetStock(toolID int64, stock int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tools[toolID]; ok {
		t.Quantity = stock
	}
}

func (b *Backend) Stock(toolID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tools[toolID]; ok {
		return t.Quantity
	}
	return -1
}

func (b *Backend) AddLog(toolID int64, qty int, facility, userName string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[toolID] = append(b.logs[toolID], map[string]any{
		"id":        b.next(),
		"tool_id":   toolID,
		"quantity":  qty,
		"date":      at.Format("2006-01-02T15:04:05"),
		"facility":  facility,
		"user_name": userName,
	})
}

// FailNext makes the next call to method+path answer status with detail.
func (b *Backend) FailNext(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Hold blocks calls to method+path until the returned func is called.
func (b *Backend) Hold(method, path string) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[method+" "+path] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gates, method+" "+path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Calls counts received calls of method whose path starts with prefix.
func (b *Backend) Calls(method, prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if strings.HasPrefix(c, method+" "+prefix) {
			n++
		}
	}
	return n
}

func (b *Backend) RequestStatus(id int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.findRequest(id); r != nil {
		return r.Status
	}
	return ""
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, 200, map[string]bool{"ok": true}) })
		r.Post("/login", b.login)
		r.Get("/me", b.me)
		r.Post("/logout", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, 200, msg("ok")) })
		r.Get("/catalog", b.catalog)

		r.Group(func(r chi.Router) {
			r.Use(b.auth)
			r.Post("/requests", b.createRequest)
			r.Get("/requests", b.myRequests)
			r.Get("/tools", b.listTools)
			r.Post("/tools", b.createTool)
			r.Put("/tools/{id}", b.updateTool)
			r.Delete("/tools/{id}", b.deleteTool)
			r.Get("/tools/{id}/logs", b.toolLogs)
			r.Get("/categories", b.listCategories)
			r.Get("/users", b.listUsers)
		})

		r.Route("/admin/requests", func(r chi.Router) {
			r.Use(b.auth, b.admin)
			r.Get("/", b.adminRequests)
			r.Post("/{id}/approve", b.approve)
			r.Post("/{id}/reject", b.reject)
			r.Put("/{id}", b.editRequest)
			r.Delete("/{id}", b.deleteRequest)
		})
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		key := r.Method + " " + path

		b.mu.Lock()
		b.calls = append(b.calls, key)
		gate := b.gates[key]
		f, failing := b.failures[key]
		delete(b.failures, key)
		b.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if failing {
			writeJSON(w, f.status, map[string]string{"error": f.detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) current(r *http.Request) (users.User, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return users.User{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if Cookie(a.User.ID) == c.Value {
			return a.User, true
		}
	}
	return users.User{}, false
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.current(r); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := b.current(r); !u.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden: admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Username, Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	var found *account
	for i := range b.accounts {
		if b.accounts[i].User.Username == in.Username && b.accounts[i].Password == in.Password {
			found = &b.accounts[i]
		}
	}
	b.mu.Unlock()

	if found == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: Cookie(found.User.ID), Path: "/"})
	writeJSON(w, 200, map[string]any{
		"message": "ok",
		"user":    map[string]any{"id": found.User.ID, "name": found.User.Name, "role": found.User.Role},
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	u, ok := b.current(r)
	if !ok {
		writeJSON(w, 200, nil)
		return
	}
	writeJSON(w, 200, u)
}

func (b *Backend) catalog(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.categories))
	for _, c := range b.categories {
		list := []map[string]any{}
		for _, t := range b.sortedTools() {
			if t.CategoryID == c.ID {
				list = append(list, map[string]any{"id": t.ID, "name": t.Name, "description": t.Description, "quantity": t.Quantity})
			}
		}
		out = append(out, map[string]any{"id": c.ID, "category": c.Name, "tools": list})
	}
	writeJSON(w, 200, out)
}

func (b *Backend) sortedTools() []*tool {
	list := make([]*tool, 0, len(b.tools))
	for _, t := range b.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (b *Backend) createRequest(w http.ResponseWriter, r *http.Request) {
	u, _ := b.current(r)
	var in struct {
		Items []struct {
			ToolID   int64 `json:"tool_id"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Items) == 0 {
		writeJSON(w, 400, map[string]string{"error": "items array required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	req := &request{ID: b.next(), UserID: u.ID, Status: "Pending", Requested: time.Now().UTC()}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			writeJSON(w, 400, map[string]string{"error": "quantity must be > 0"})
			return
		}
		if _, ok := b.tools[it.ToolID]; !ok {
			writeJSON(w, 404, map[string]string{"error": fmt.Sprintf("tool_id %d not found", it.ToolID)})
			return
		}
		req.Lines = append(req.Lines, &line{ID: b.next(), ToolID: it.ToolID, Quantity: it.Quantity, Status: "Pending"})
	}
	b.requests = append(b.requests, req)
	writeJSON(w, 201, map[string]any{"message": "request created", "request_id": req.ID})
}

func (b *Backend) myRequests(w http.ResponseWriter, r *http.Request) {
	u, _ := b.current(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].UserID == u.ID {
			out = append(out, b.render(b.requests[i]))
		}
	}
	writeJSON(w, 200, out)
}

func (b *Backend) adminRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for i := len(b.requests) - 1; i >= 0; i-- {
		if status == "" || b.requests[i].Status == status {
			out = append(out, b.render(b.requests[i]))
		}
	}
	writeJSON(w, 200, out)
}

func (b *Backend) render(req *request) map[string]any {
	lines := make([]map[string]any, 0, len(req.Lines))
	for _, ln := range req.Lines {
		name, stock := "", 0
		if t, ok := b.tools[ln.ToolID]; ok {
			name, stock = t.Name, t.Quantity
		}
		lines = append(lines, map[string]any{
			"id": ln.ID, "tool_id": ln.ToolID, "tool_name": name,
			"quantity": ln.Quantity, "status": ln.Status, "in_stock": stock,
		})
	}
	owner := map[string]any{}
	for _, a := range b.accounts {
		if a.User.ID == req.UserID {
			owner = map[string]any{"id": a.User.ID, "name": a.User.Name, "username": a.User.Username, "facility": a.User.Facility, "email": a.User.Email}
		}
	}
	var approver any
	if req.ApprovedByID != 0 {
		for _, a := range b.accounts {
			if a.User.ID == req.ApprovedByID {
				approver = map[string]any{"id": a.User.ID, "name": a.User.Name}
			}
		}
	}
	return map[string]any{
		"id":             req.ID,
		"status":         req.Status,
		"date_requested": req.Requested.Format("2006-01-02T15:04:05.000000"),
		"date_approved":  isoOrNil(req.Approved),
		"date_rejected":  isoOrNil(req.Rejected),
		"approved_by":    approver,
		"user":           owner,
		"lines":          lines,
	}
}

func isoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

func (b *Backend) findRequest(id int64) *request {
	for _, r := range b.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (b *Backend) approve(w http.ResponseWriter, r *http.Request) {
	u, _ := b.current(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	req := b.findRequest(pathID(r))
	if req == nil {
		writeJSON(w, 404, map[string]string{"error": "Request not found"})
		return
	}
	if req.Status != "Pending" {
		writeJSON(w, 400, map[string]string{"error": "Only pending requests can be approved"})
		return
	}
	for _, ln := range req.Lines {
		t := b.tools[ln.ToolID]
		if ln.Quantity > t.Quantity {
			writeJSON(w, 400, map[string]string{"error": fmt.Sprintf(
				"Insufficient stock for '%s'. Requested %d, in stock %d. Edit quantity to match stock before approval.",
				t.Name, ln.Quantity, t.Quantity)})
			return
		}
	}
	now := time.Now().UTC()
	for _, ln := range req.Lines {
		b.tools[ln.ToolID].Quantity -= ln.Quantity
		ln.Status = "Approved"
	}
	req.Status, req.Approved, req.ApprovedByID = "Approved", &now, u.ID
	writeJSON(w, 200, msg("approved"))
}

func (b *Backend) reject(w http.ResponseWriter, r *http.Request) {
	u, _ := b.current(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	req := b.findRequest(pathID(r))
	if req == nil {
		writeJSON(w, 404, map[string]string{"error": "Request not found"})
		return
	}
	now := time.Now().UTC()
	for _, ln := range req.Lines {
		ln.Status = "Rejected"
	}
	req.Status, req.Rejected, req.ApprovedByID = "Rejected", &now, u.ID
	writeJSON(w, 200, msg("rejected"))
}

func (b *Backend) editRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Lines []struct {
			ID       int64 `json:"id"`
			Quantity *int  `json:"quantity"`
		} `json:"lines"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	defer b.mu.Unlock()
	req := b.findRequest(pathID(r))
	if req == nil {
		writeJSON(w, 404, map[string]string{"error": "Request not found"})
		return
	}
	if req.Status != "Pending" {
		writeJSON(w, 400, map[string]string{"error": "Only pending requests can be edited"})
		return
	}
	byID := map[int64]*line{}
	for _, ln := range req.Lines {
		byID[ln.ID] = ln
	}
	for _, p := range in.Lines {
		ln, ok := byID[p.ID]
		if !ok {
			writeJSON(w, 404, map[string]string{"error": fmt.Sprintf("line id %d not found on this request", p.ID)})
			return
		}
		if p.Quantity != nil {
			if *p.Quantity <= 0 {
				writeJSON(w, 400, map[string]string{"error": "quantity must be > 0"})
				return
			}
			ln.Quantity = *p.Quantity
		}
	}
	writeJSON(w, 200, msg("updated"))
}

func (b *Backend) deleteRequest(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	for i, req := range b.requests {
		if req.ID != id {
			continue
		}
		if req.Status != "Pending" {
			writeJSON(w, 400, map[string]string{"error": "Only pending requests can be deleted"})
			return
		}
		b.requests = append(b.requests[:i], b.requests[i+1:]...)
		writeJSON(w, 200, msg("deleted"))
		return
	}
	writeJSON(w, 404, map[string]string{"error": "Request not found"})
}

func (b *Backend) toolJSON(t *tool) map[string]any {
	cat := ""
	for _, c := range b.categories {
		if c.ID == t.CategoryID {
			cat = c.Name
		}
	}
	return map[string]any{"id": t.ID, "name": t.Name, "description": t.Description, "quantity": t.Quantity, "category": cat}
}

func (b *Backend) listTools(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.sortedTools()
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	out := []map[string]any{}
	for _, t := range list {
		if q == "" || strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, b.toolJSON(t))
		}
	}
	writeJSON(w, 200, out)
}

type toolBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
}

func (b *Backend) categoryID(name string) int64 {
	for _, c := range b.categories {
		if c.Name == name {
			return c.ID
		}
	}
	return 0
}

func (b *Backend) createTool(w http.ResponseWriter, r *http.Request) {
	var in toolBody
	_ = json.NewDecoder(r.Body).Decode(&in)
	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, 400, map[string]string{"error": "name required"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &tool{ID: b.next(), Name: in.Name, Description: in.Description, Quantity: in.Quantity, CategoryID: b.categoryID(in.Category)}
	b.tools[t.ID] = t
	writeJSON(w, 201, b.toolJSON(t))
}

func (b *Backend) updateTool(w http.ResponseWriter, r *http.Request) {
	var in toolBody
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tools[pathID(r)]
	if !ok {
		writeJSON(w, 404, map[string]string{"error": "Not Found"})
		return
	}
	t.Name, t.Description, t.Quantity, t.CategoryID = in.Name, in.Description, in.Quantity, b.categoryID(in.Category)
	writeJSON(w, 200, b.toolJSON(t))
}

func (b *Backend) deleteTool(w http.ResponseWriter, r *http.Request) {
	var in struct{ Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Password != DeletePassword {
		writeJSON(w, 403, map[string]string{"error": "Invalid admin password"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	if _, ok := b.tools[id]; !ok {
		writeJSON(w, 404, map[string]string{"error": "Not Found"})
		return
	}
	delete(b.tools, id)
	writeJSON(w, 200, msg("deleted"))
}

func (b *Backend) toolLogs(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.logs[pathID(r)]
	if out == nil {
		out = []map[string]any{}
	}
	writeJSON(w, 200, out)
}

func (b *Backend) listCategories(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, c := range b.categories {
		out = append(out, map[string]any{"id": c.ID, "name": c.Name})
	}
	writeJSON(w, 200, out)
}

func (b *Backend) listUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]users.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a.User)
	}
	writeJSON(w, 200, out)
}

func msg(s string) map[string]string { return map[string]string{"message": s} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
