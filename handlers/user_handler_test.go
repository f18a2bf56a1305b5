package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterMigrant(t *testing.T) {
	s := newTestServer(t, nil)

	body := migrantBody("9000000001", "Nepal")
	body["dob"] = "1990-05-17"
	body["email"] = "Ravi@Example.com"
	body["org_name"] = "ignored"
	rec := s.postJSON(t, "/api/register", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	decode(t, rec, &out)
	if out["message"] != "Migrant registered successfully" {
		t.Fatalf("message = %q", out["message"])
	}

	rec = s.get("/api/user/" + out["user_id"])
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	var profile map[string]any
	decode(t, rec, &profile)
	if profile["email"] != "ravi@example.com" {
		t.Fatalf("email = %v", profile["email"])
	}
	if profile["dob"] != "1990-05-17" {
		t.Fatalf("dob = %v", profile["dob"])
	}
	if profile["org_name"] != nil {
		t.Fatalf("org_name = %v, want null", profile["org_name"])
	}
	if _, ok := profile["password_hash"]; ok {
		t.Fatal("profile leaks password hash")
	}
}

func TestRegisterOrganization(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.postJSON(t, "/api/register", map[string]string{
		"name":                    "Helping Hands",
		"phone":                   "8000000001",
		"password":                "secret",
		"user_type":               "NGO",
		"org_registration_number": "REG-1",
		"nationality":             "ignored",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	decode(t, rec, &out)
	if out["message"] != "Ngo registered successfully" {
		t.Fatalf("message = %q", out["message"])
	}

	var profile map[string]any
	decode(t, s.get("/api/user/"+out["user_id"]), &profile)
	if profile["user_type"] != "ngo" || profile["org_registration_number"] != "REG-1" {
		t.Fatalf("profile = %v", profile)
	}
	if profile["nationality"] != nil {
		t.Fatalf("nationality = %v, want null", profile["nationality"])
	}
}

func TestRegisterRejects(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, map[string]string{
		"name": "First", "phone": "9000000001", "password": "pw",
		"email": "first@example.com", "id_number": "ID-1",
	})
	s.register(t, map[string]string{
		"name": "Clinic", "phone": "9000000009", "password": "pw",
		"user_type": "hospital", "org_registration_number": "ORG-1",
	})

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing fields", map[string]string{"name": "x", "phone": "  "}, "Name, phone, and password are required"},
		{"bad dob", map[string]string{"name": "x", "phone": "1", "password": "pw", "dob": "17/05/1990"}, "Invalid date format for dob. Use YYYY-MM-DD."},
		{"bad type", map[string]string{"name": "x", "phone": "1", "password": "pw", "user_type": "alien"}, "Invalid user_type"},
		{"duplicate phone", map[string]string{"name": "x", "phone": " 9000000001 ", "password": "pw"}, "Phone already registered"},
		{"duplicate email", map[string]string{"name": "x", "phone": "2", "password": "pw", "email": "FIRST@example.com"}, "Email already registered"},
		{"duplicate id number", map[string]string{"name": "x", "phone": "3", "password": "pw", "id_number": "ID-1"}, "ID number already registered"},
		{"duplicate phone before bad dob", map[string]string{"name": "x", "phone": "9000000001", "password": "pw", "dob": "yesterday"}, "Phone already registered"},
		{"duplicate email before bad type", map[string]string{"name": "x", "phone": "5", "password": "pw", "email": "first@example.com", "user_type": "alien"}, "Email already registered"},
		{"duplicate org registration", map[string]string{"name": "x", "phone": "4", "password": "pw", "user_type": "school", "org_registration_number": "ORG-1"}, "Organization registration number already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.postJSON(t, "/api/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if got := errorMessage(t, rec); got != tt.want {
				t.Fatalf("error = %q, want %q", got, tt.want)
			}
		})
	}

	rec := s.do(httptest.NewRequest(http.MethodPost, "/api/register", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body status = %d", rec.Code)
	}
}

func TestRegisterLongPassword(t *testing.T) {
	s := newTestServer(t, nil)
	password := strings.Repeat("p", 80)

	body := migrantBody("9000000001", "Nepal")
	body["password"] = password
	s.register(t, body)

	rec := s.postJSON(t, "/api/login", map[string]string{"phone": "9000000001", "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rec.Code, rec.Body.String())
	}
	rec = s.postJSON(t, "/api/login", map[string]string{"phone": "9000000001", "password": password[:72]})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("truncated password status = %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.register(t, migrantBody("9000000001", "Nepal"))

	rec := s.postJSON(t, "/api/login", map[string]string{"phone": "9000000001", "password": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Message string `json:"message"`
		UserID  string `json:"user_id"`
		Token   string `json:"token"`
	}
	decode(t, rec, &out)
	if out.Message != "Login successful" || out.UserID != id {
		t.Fatalf("login = %+v", out)
	}
	claims, err := s.h.Tokens.Verify(out.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != id || claims.UserType != "migrant" {
		t.Fatalf("claims = %+v", claims)
	}

	for _, body := range []map[string]string{
		{"phone": "9000000001", "password": "wrong"},
		{"phone": "9999999999", "password": "secret"},
		{"phone": "9000000001"},
	} {
		rec := s.postJSON(t, "/api/login", body)
		if rec.Code != http.StatusUnauthorized || errorMessage(t, rec) != "Invalid credentials" {
			t.Fatalf("%v: status = %d body = %s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestProfileNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	for _, id := range []string{"507f1f77bcf86cd799439011", "42"} {
		rec := s.get("/api/user/" + id)
		if rec.Code != http.StatusNotFound || errorMessage(t, rec) != "User not found" {
			t.Fatalf("%s: status = %d body = %s", id, rec.Code, rec.Body.String())
		}
	}
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.RequireToken = true })
	id := s.register(t, migrantBody("9000000001", "Nepal"))
	other := s.register(t, migrantBody("9000000002", "Nepal"))

	if rec := s.get("/api/user/" + id); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}

	token, _, err := s.h.Tokens.Issue(other, "migrant")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/user/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := s.do(req); rec.Code != http.StatusForbidden {
		t.Fatalf("other user's token status = %d", rec.Code)
	}

	token, _, err = s.h.Tokens.Issue(id, "migrant")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/user/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := s.do(req); rec.Code != http.StatusOK {
		t.Fatalf("own token status = %d", rec.Code)
	}
}

func TestBuddyConnect(t *testing.T) {
	s := newTestServer(t, nil)
	me := s.register(t, migrantBody("9000000001", "Nepal"))
	peer := s.register(t, migrantBody("9000000002", "Nepal"))
	s.register(t, migrantBody("9000000003", "Bangladesh"))
	org := s.register(t, map[string]string{
		"name": "Clinic", "phone": "8000000001", "password": "pw", "user_type": "hospital",
	})

	rec := s.get("/api/buddyconnect/" + me)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Buddies []buddy `json:"buddies"`
	}
	decode(t, rec, &out)
	if len(out.Buddies) != 1 || out.Buddies[0].ID != peer {
		t.Fatalf("buddies = %+v", out.Buddies)
	}
	if out.Buddies[0].Phone != "9000000002" || out.Buddies[0].CurrentLocation != "Pune" {
		t.Fatalf("buddy = %+v", out.Buddies[0])
	}

	for _, id := range []string{org, "507f1f77bcf86cd799439011"} {
		rec := s.get("/api/buddyconnect/" + id)
		if rec.Code != http.StatusNotFound || errorMessage(t, rec) != "Invalid user" {
			t.Fatalf("%s: status = %d body = %s", id, rec.Code, rec.Body.String())
		}
	}
}

func TestBuddyConnectWithoutNationality(t *testing.T) {
	s := newTestServer(t, nil)
	me := s.register(t, migrantBody("9000000001", ""))
	s.register(t, migrantBody("9000000002", ""))

	rec := s.get("/api/buddyconnect/" + me)
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"buddies\":[]}\n" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestGetAllUsers(t *testing.T) {
	disabled := newTestServer(t, nil)
	if rec := disabled.get("/api/users"); rec.Code != http.StatusNotFound {
		t.Fatalf("disabled status = %d", rec.Code)
	}

	s := newTestServer(t, func(d *Deps) { d.AdminAPIKey = "admin-key" })
	s.register(t, migrantBody("9000000001", "Nepal"))
	s.register(t, migrantBody("9000000002", "Bangladesh"))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("X-API-Key", "wrong")
	if rec := s.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users?nationality=Nepal", nil)
	req.Header.Set("X-API-Key", "admin-key")
	rec := s.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Users []map[string]any `json:"users"`
	}
	decode(t, rec, &out)
	if len(out.Users) != 1 || out.Users[0]["phone"] != "9000000001" {
		t.Fatalf("users = %v", out.Users)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users?limit=abc", nil)
	req.Header.Set("X-API-Key", "admin-key")
	if rec := s.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}
