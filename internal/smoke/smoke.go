// Package smoke drives a running API through a fixed CRUD scenario and checks
// every status code.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/oksasatya/go-users-api/pkg/client"
)

// MissingID never exists in a freshly started database.
const MissingID int64 = 9999

// Step is one request of the scenario. Path may refer to ids captured by
// earlier steps; a step whose id is missing is skipped.
type Step struct {
	Title   string
	Method  string
	Path    func(ids map[string]int64) (string, bool)
	Body    any
	Want    int
	Capture string // stores the returned id under this key on success
}

type Outcome struct {
	Step    Step
	Path    string
	Status  int
	Skipped bool
}

func (o Outcome) OK() bool { return o.Skipped || o.Status == o.Step.Want }

type Result struct {
	Outcomes []Outcome
}

func (r Result) Mismatches() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func fixed(p string) func(map[string]int64) (string, bool) {
	return func(map[string]int64) (string, bool) { return p, true }
}

func byID(key string) func(map[string]int64) (string, bool) {
	return func(ids map[string]int64) (string, bool) {
		id, ok := ids[key]
		if !ok {
			return "", false
		}
		return "/users/" + strconv.FormatInt(id, 10), true
	}
}

var missing = fixed("/users/" + strconv.FormatInt(MissingID, 10))

var (
	jan   = client.CreateUser{Name: "Jan Kowalski", Email: "jan.kowalski@example.com", Role: "admin"}
	anna  = client.CreateUser{Name: "Anna Nowak", Email: "anna.nowak@example.com", Role: "user"}
	piotr = client.CreateUser{Name: "Piotr Wiśniewski", Email: "piotr.wisniewski@example.com", Role: "moderator"}
)

// Scenario returns the fifteen steps in execution order.
func Scenario() []Step {
	superAdmin := "super_admin"
	return []Step{
		{Title: "GET /", Method: http.MethodGet, Path: fixed("/"), Want: http.StatusOK},
		{Title: "GET /users (initial state)", Method: http.MethodGet, Path: fixed("/users"), Want: http.StatusOK},
		{Title: "POST /users (Jan Kowalski)", Method: http.MethodPost, Path: fixed("/users"), Body: jan, Want: http.StatusOK, Capture: "jan"},
		{Title: "POST /users (Anna Nowak)", Method: http.MethodPost, Path: fixed("/users"), Body: anna, Want: http.StatusOK, Capture: "anna"},
		{Title: "POST /users (Piotr Wiśniewski)", Method: http.MethodPost, Path: fixed("/users"), Body: piotr, Want: http.StatusOK, Capture: "piotr"},
		{Title: "POST /users (duplicate email)", Method: http.MethodPost, Path: fixed("/users"), Body: jan, Want: http.StatusBadRequest},
		{Title: "GET /users", Method: http.MethodGet, Path: fixed("/users"), Want: http.StatusOK},
		{Title: "GET /users/{jan}", Method: http.MethodGet, Path: byID("jan"), Want: http.StatusOK},
		{Title: "PUT /users/{anna} (full update)", Method: http.MethodPut, Path: byID("anna"),
			Body: client.CreateUser{Name: "Anna Kowalska", Email: "anna.kowalska@example.com", Role: "admin"}, Want: http.StatusOK},
		{Title: "PUT /users/{piotr} (only role)", Method: http.MethodPut, Path: byID("piotr"),
			Body: client.UpdateUser{Role: &superAdmin}, Want: http.StatusOK},
		{Title: "GET /users (after updates)", Method: http.MethodGet, Path: fixed("/users"), Want: http.StatusOK},
		{Title: "GET /users/9999", Method: http.MethodGet, Path: missing, Want: http.StatusNotFound},
		{Title: "DELETE /users/{jan}", Method: http.MethodDelete, Path: byID("jan"), Want: http.StatusOK},
		{Title: "GET /users (after deletion)", Method: http.MethodGet, Path: fixed("/users"), Want: http.StatusOK},
		{Title: "DELETE /users/9999", Method: http.MethodDelete, Path: missing, Want: http.StatusNotFound},
	}
}

type Runner struct {
	API   *client.Client
	Out   io.Writer
	Steps []Step
}

func NewRunner(api *client.Client, out io.Writer) *Runner {
	return &Runner{API: api, Out: out, Steps: Scenario()}
}

// Run executes every step in order. It stops early only when the server
// cannot be reached; status mismatches are collected in the result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	ids := map[string]int64{}
	r.printf("\nStarting API tests against %s\n", r.API.BaseURL)

	for i, st := range r.Steps {
		path, ok := st.Path(ids)
		if !ok {
			r.printf("\n%d. %s: skipped, no id from an earlier step\n", i+1, st.Title)
			res.Outcomes = append(res.Outcomes, Outcome{Step: st, Skipped: true})
			continue
		}

		resp, err := r.API.Do(ctx, st.Method, path, st.Body)
		if err != nil {
			if errors.Is(err, client.ErrConnection) {
				r.printf("\nError: cannot connect to API server at %s\n", r.API.BaseURL)
				r.printf("Make sure the server is running: go run ./cmd\n")
			}
			return res, err
		}

		if st.Capture != "" && resp.Status == http.StatusOK {
			var u client.User
			if json.Unmarshal(resp.Body, &u) == nil && u.ID != 0 {
				ids[st.Capture] = u.ID
			}
		}

		o := Outcome{Step: st, Path: path, Status: resp.Status}
		res.Outcomes = append(res.Outcomes, o)
		r.report(i+1, o, resp.Body)
	}

	rule := strings.Repeat("=", 60)
	if bad := res.Mismatches(); len(bad) > 0 {
		r.printf("\n%s\n%d of %d steps returned an unexpected status\n%s\n\n", rule, len(bad), len(res.Outcomes), rule)
	} else {
		r.printf("\n%s\nAll tests completed!\n%s\n\n", rule, rule)
	}
	return res, nil
}

func (r *Runner) report(n int, o Outcome, body []byte) {
	rule := strings.Repeat("=", 60)
	r.printf("\n%s\n%d. %s %s\n%s\n", rule, n, o.Step.Method, o.Path, rule)
	verdict := "ok"
	if !o.OK() {
		verdict = fmt.Sprintf("MISMATCH, expected %d", o.Step.Want)
	}
	r.printf("Status Code: %d (%s)\n", o.Status, verdict)
	r.printf("Response: %s\n", pretty(body))
}

func pretty(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(r.Out, format, args...)
}
