//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

const sessionCookieName = "stashd_session"

type fileResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Type      string   `json:"type"`
	Extension string   `json:"extension"`
	Size      int64    `json:"size"`
	Owner     string   `json:"owner"`
	Users     []string `json:"users"`
}

type fileListResponse struct {
	Total int            `json:"total"`
	Files []fileResponse `json:"files"`
}

type uploadResponse struct {
	Success bool          `json:"success"`
	URL     string        `json:"url"`
	File    *fileResponse `json:"file"`
}

type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("STASHD_BASE_URL", "http://localhost:8080")

	email := uniqueEmail("smoke")
	client := signUp(t, baseURL, "Smoke Tester", email, "hunter2hunter2")

	// The session cookie must authenticate /api/me.
	me := getMe(t, baseURL, client)
	if !strings.EqualFold(me.Email, email) {
		t.Fatalf("expected /api/me email %q, got %q", email, me.Email)
	}
	if me.Avatar == "" {
		t.Fatalf("expected a placeholder avatar")
	}

	content := []byte("stashd e2e smoke payload")
	uploaded := uploadFile(t, baseURL, client, "smoke report.pdf", content)
	if uploaded.Type != "document" {
		t.Fatalf("expected document type for pdf, got %q", uploaded.Type)
	}
	if uploaded.Size != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), uploaded.Size)
	}

	// The new file shows up in the listing.
	list := listFiles(t, baseURL, client, "")
	if findFile(list, uploaded.ID) == nil {
		t.Fatalf("uploaded file %s missing from listing", uploaded.ID)
	}

	// Rename keeps the extension.
	var renamed fileResponse
	status := doJSON(t, client, http.MethodPatch,
		baseURL+"/api/files/"+uploaded.ID+"/rename",
		map[string]any{"name": "smoke renamed"}, &renamed)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from rename, got %d", status)
	}
	if renamed.Name != "smoke renamed.pdf" {
		t.Fatalf("expected renamed file %q, got %q", "smoke renamed.pdf", renamed.Name)
	}

	// Share with a collaborator.
	collaborator := uniqueEmail("collab")
	var shared fileResponse
	status = doJSON(t, client, http.MethodPatch,
		baseURL+"/api/files/"+uploaded.ID+"/share",
		map[string]any{"emails": []string{collaborator}}, &shared)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from share, got %d", status)
	}
	if len(shared.Users) != 1 || !strings.EqualFold(shared.Users[0], collaborator) {
		t.Fatalf("unexpected collaborator list %v", shared.Users)
	}

	// The collaborator sees the shared file after signing up.
	collabClient := signUp(t, baseURL, "Collab Tester", collaborator, "hunter2hunter2")
	collabList := listFiles(t, baseURL, collabClient, "")
	if findFile(collabList, uploaded.ID) == nil {
		t.Fatalf("shared file %s not visible to collaborator", uploaded.ID)
	}

	// Only the owner may delete.
	status = doJSON(t, collabClient, http.MethodDelete,
		baseURL+"/api/files/"+uploaded.ID, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 when collaborator deletes, got %d", status)
	}

	status = doJSON(t, client, http.MethodDelete,
		baseURL+"/api/files/"+uploaded.ID, nil, nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", status)
	}

	list = listFiles(t, baseURL, client, "")
	if findFile(list, uploaded.ID) != nil {
		t.Fatalf("deleted file %s still in listing", uploaded.ID)
	}
}

// TestE2EListingFilters validates type filtering and search over uploads.
func TestE2EListingFilters(t *testing.T) {
	baseURL := envOrDefault("STASHD_BASE_URL", "http://localhost:8080")

	client := signUp(t, baseURL, "Filter Tester", uniqueEmail("filter"), "hunter2hunter2")

	doc := uploadFile(t, baseURL, client, "quarterly notes.txt", []byte("notes"))
	img := uploadFile(t, baseURL, client, "holiday photo.png", []byte{0x89, 'P', 'N', 'G'})

	images := listFiles(t, baseURL, client, "type=images")
	if findFile(images, img.ID) == nil {
		t.Errorf("png upload missing from images listing")
	}
	if findFile(images, doc.ID) != nil {
		t.Errorf("txt upload should not appear in images listing")
	}

	matches := listFiles(t, baseURL, client, "query="+url.QueryEscape("quarterly"))
	if findFile(matches, doc.ID) == nil {
		t.Errorf("search did not match the document name")
	}
	if findFile(matches, img.ID) != nil {
		t.Errorf("search matched an unrelated file")
	}
}

// TestE2EAuthRateLimiting validates that repeated sign-in attempts hit 429.
func TestE2EAuthRateLimiting(t *testing.T) {
	baseURL := envOrDefault("STASHD_BASE_URL", "http://localhost:8080")

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	form := url.Values{
		"email":    {uniqueEmail("ratelimit")},
		"password": {"definitely-wrong"},
	}

	var rateLimited bool
	var lastResp *http.Response

	// The auth bucket allows a modest burst, so hammer well past it.
	for i := 0; i < 40; i++ {
		resp, err := client.PostForm(baseURL+"/auth/sign-in", form)
		if err != nil {
			t.Fatalf("sign-in request failed: %v", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			lastResp = resp
			break
		}
		resp.Body.Close()
	}

	if !rateLimited {
		t.Skip("rate limiting appears disabled on this deployment")
	}
	defer lastResp.Body.Close()

	if lastResp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header on 429 response")
	}
	if got := lastResp.Header.Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", got)
	}
	if lastResp.Header.Get("Retry-After") == "" {
		t.Log("Retry-After header not present (optional but recommended)")
	}

	var errResp map[string]any
	if err := json.NewDecoder(lastResp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp["error"] == nil {
		t.Error("429 response missing 'error' field")
	}
}

// TestE2ENoSecretsEchoed validates that credentials never appear in responses.
func TestE2ENoSecretsEchoed(t *testing.T) {
	baseURL := envOrDefault("STASHD_BASE_URL", "http://localhost:8080")

	password := "sup3r-secret-passw0rd"

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// A failed sign-in must not echo the password back.
	resp, err := client.PostForm(baseURL+"/auth/sign-in", url.Values{
		"email":    {uniqueEmail("secrets")},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("sign-in request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if strings.Contains(string(body), password) {
		t.Error("SECURITY: Sign-in response echoed the password")
	}
	if strings.Contains(resp.Header.Get("Location"), password) {
		t.Error("SECURITY: Redirect location contains the password")
	}

	// A signed-in profile response must not contain a password hash.
	authed := signUp(t, baseURL, "Secrets Tester", uniqueEmail("secrets2"), password)
	req, _ := http.NewRequest(http.MethodGet, baseURL+"/api/me", nil)
	resp2, err := authed.Do(req)
	if err != nil {
		t.Fatalf("me request failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if strings.Contains(string(body2), password) || strings.Contains(string(body2), "argon2id") {
		t.Error("SECURITY: Profile response leaked credential material")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@e2e.stashd.test", prefix, time.Now().UnixNano())
}

// signUp creates an account and returns a client holding its session cookie.
func signUp(t *testing.T, baseURL, fullname, email, password string) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 15 * time.Second, Jar: jar}

	resp, err := client.PostForm(baseURL+"/auth/sign-up", url.Values{
		"fullname": {fullname},
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("sign-up request failed: %v", err)
	}
	resp.Body.Close()

	base, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range jar.Cookies(base) {
		if c.Name == sessionCookieName && c.Value != "" {
			return client
		}
	}
	t.Fatalf("sign-up did not set a %s cookie", sessionCookieName)
	return nil
}

func getMe(t *testing.T, baseURL string, client *http.Client) userResponse {
	t.Helper()

	var me userResponse
	status := doJSON(t, client, http.MethodGet, baseURL+"/api/me", nil, &me)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from /api/me, got %d", status)
	}
	return me
}

func uploadFile(t *testing.T, baseURL string, client *http.Client, name string, content []byte) fileResponse {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/upload", &buf)
	if err != nil {
		t.Fatalf("create upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200 from upload, got %d: %s", resp.StatusCode, body)
	}

	var upload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !upload.Success || upload.URL == "" || upload.File == nil {
		t.Fatalf("upload response missing fields: %+v", upload)
	}
	return *upload.File
}

func listFiles(t *testing.T, baseURL string, client *http.Client, rawQuery string) fileListResponse {
	t.Helper()

	endpoint := baseURL + "/api/files"
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	var list fileListResponse
	status := doJSON(t, client, http.MethodGet, endpoint, nil, &list)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from listing, got %d", status)
	}
	return list
}

func findFile(list fileListResponse, id string) *fileResponse {
	for i := range list.Files {
		if list.Files[i].ID == id {
			return &list.Files[i]
		}
	}
	return nil
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && resp.ContentLength != 0 {
			t.Fatalf("decode response: %v", err)
		}
	}

	return resp.StatusCode
}
