// Package seed fills a running API with random users.
package seed

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/oksasatya/go-users-api/pkg/client"
)

var Roles = []string{"admin", "user", "moderator", "editor", "viewer", "contributor", "manager", "developer"}

var freeMailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "wp.pl", "onet.pl", "interia.pl", "o2.pl"}

// Generator produces random create payloads. A fixed seed gives a repeatable sequence.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator seeds the generator; zero picks a random seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(int64(seed))}
}

func (g *Generator) User() client.CreateUser {
	first := g.faker.FirstName()
	last := g.faker.LastName()
	return client.CreateUser{
		Name:  first + " " + last,
		Email: g.email(first, last),
		Role:  g.faker.RandomString(Roles),
	}
}

// email picks one of three local-part shapes: first.last, initial+last, first+number.
func (g *Generator) email(first, last string) string {
	f, l := localPart(first), localPart(last)
	domain := g.faker.RandomString(freeMailDomains)

	var local string
	switch g.faker.Number(0, 2) {
	case 0:
		local = f + "." + l
	case 1:
		local = firstRune(f) + l
	default:
		local = fmt.Sprintf("%s%d", f, g.faker.Number(1, 999))
	}
	return local + "@" + domain
}

func localPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
