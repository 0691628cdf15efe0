package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oksasatya/go-users-api/pkg/client"
)

const listTail = 10

type Failure struct {
	Attempt client.CreateUser
	Reason  string
}

type Report struct {
	Added  []client.User
	Failed []Failure
}

// Seeder posts generated users one at a time and writes a human readable log to Out.
type Seeder struct {
	API *client.Client
	Gen *Generator
	Out io.Writer
}

func New(api *client.Client, gen *Generator, out io.Writer) *Seeder {
	return &Seeder{API: api, Gen: gen, Out: out}
}

// Run adds count users. A connection failure aborts the rest of the batch and
// is returned; per-user API failures are only recorded.
func (s *Seeder) Run(ctx context.Context, count int) (Report, error) {
	var rep Report
	s.printf("\nGenerating and adding %d random user(s)...\n\n", count)

	for i := 1; i <= count; i++ {
		in := s.Gen.User()
		u, err := s.API.CreateUser(ctx, in)
		if err != nil {
			if errors.Is(err, client.ErrConnection) {
				s.printf("\nError: cannot connect to API server at %s\n", s.API.BaseURL)
				s.printf("Make sure the server is running: go run ./cmd\n")
				return rep, err
			}
			reason := err.Error()
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Detail != "" {
				reason = apiErr.Detail
			}
			rep.Failed = append(rep.Failed, Failure{Attempt: in, Reason: reason})
			s.printf("User %d/%d failed: %s\n   Tried: %s\n\n", i, count, reason, in.Email)
			continue
		}
		rep.Added = append(rep.Added, *u)
		s.printf("User %d/%d added successfully:\n   ID: %d\n   Name: %s\n   Email: %s\n   Role: %s\n\n",
			i, count, u.ID, u.Name, u.Email, u.Role)
	}

	rule := strings.Repeat("=", 60)
	s.printf("\n%s\nSummary:\n   Successfully added: %d\n   Failed: %d\n%s\n\n", rule, len(rep.Added), len(rep.Failed), rule)

	if len(rep.Added) > 0 {
		if err := s.listLatest(ctx); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *Seeder) listLatest(ctx context.Context) error {
	users, err := s.API.ListUsers(ctx)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			s.printf("Could not list users: %s\n", apiErr.Error())
			return nil
		}
		return err
	}
	s.printf("All users in database:\n   Total users: %d\n\n", len(users))
	if len(users) > listTail {
		users = users[len(users)-listTail:]
	}
	for _, u := range users {
		s.printf("   - %s (%s) - %s\n", u.Name, u.Email, u.Role)
	}
	return nil
}

func (s *Seeder) printf(format string, args ...any) {
	if s.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(s.Out, format, args...)
}
