package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string  `json:"name" binding:"required,max=5"`
	Role  *string `json:"role" binding:"omitempty,max=3"`
	Count int     `json:"count" binding:"omitempty,max=10"`
}

func bind(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Init()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var s sample
	return c.ShouldBindJSON(&s)
}

func TestToDetails(t *testing.T) {
	cases := []struct {
		name string
		body string
		want map[string]string
	}{
		{"missing required", `{}`, map[string]string{"name": "is required"}},
		{"too long", `{"name":"abcdefg"}`, map[string]string{"name": "must be at most 5 characters long"}},
		{"numeric max", `{"name":"a","count":11}`, map[string]string{"count": "must be at most 10"}},
		{"optional too long", `{"name":"a","role":"abcd"}`, map[string]string{"role": "must be at most 3 characters long"}},
		{"wrong type", `{"name":1}`, map[string]string{"name": "must be a string"}},
		{"syntax", `{"name":}`, map[string]string{"payload": "invalid json"}},
		{"empty body", ``, map[string]string{"payload": "request body is required"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := bind(t, tc.body)
			assert.Equal(t, tc.want, ToDetails(err))
		})
	}
}

func TestToDetails_Valid(t *testing.T) {
	assert.NoError(t, bind(t, `{"name":"abc","role":null}`))
	assert.Nil(t, ToDetails(nil))
}
