package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/gofiber/fiber/v2"
)

func TestIssueAndParseToken(t *testing.T) {
	user := models.User{FullName: "Amina Yusuf", Role: models.RoleStudent, Papers: []string{"FR", "AA"}}
	user.ID = 42

	raw, err := IssueToken("s3cret", user, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	p, err := ParseToken("s3cret", raw)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.ID != 42 || p.Role != models.RoleStudent || p.Name != "Amina Yusuf" || !p.Enrolled("AA") {
		t.Fatalf("principal = %+v", p)
	}

	if _, err := ParseToken("other", raw); err == nil {
		t.Fatal("token accepted with the wrong secret")
	}
	expired, _ := IssueToken("s3cret", user, -time.Minute)
	if _, err := ParseToken("s3cret", expired); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestRoleRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/faculty", Protected("s3cret"), RoleRequired(models.RoleFaculty, models.RoleAdmin), func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return err
		}
		return c.SendString(p.Role)
	})

	cases := []struct {
		role string
		want int
	}{
		{models.RoleFaculty, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleStudent, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			tok, err := IssueToken("s3cret", models.User{Role: tc.role}, time.Hour)
			if err != nil {
				t.Fatal(err)
			}
			req := httptest.NewRequest(http.MethodGet, "/faculty", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}
