package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meal-claim-system/metrics"
	"meal-claim-system/models"
	"meal-claim-system/services"
	"meal-claim-system/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testToken = "desk-token"

var testStart = time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	return newTestAppWithArchiver(t, nil)
}

func newTestAppWithArchiver(t *testing.T, archiver services.Archiver) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.Participant{}, &models.FoodClaim{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i, name := range []string{"Asha", "Bilal"} {
		p := models.Participant{
			ParticipantID: models.ParticipantIDFor("T01", i+1),
			TeamID:        "T01",
			TeamName:      "Alpha",
			MemberName:    name,
			MemberNumber:  i + 1,
		}
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	clock := clockwork.NewFakeClockAt(testStart)
	m := metrics.New(reg)
	claims := services.NewClaimService(db, clock, m)
	reports := services.NewReportService(db, clock, "Food Claims", time.UTC)
	reconcile := services.NewReconcileService(db, m)

	app := fiber.New()
	SetupFoodRoutes(app, claims, reports)
	SetupFoodAdminRoutes(app, testToken, claims, reports, reconcile, archiver)
	SetupOpsRoutes(app, db, reg)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, admin bool) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+testToken)
		req.Header.Set("X-Staff-ID", "desk-1")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestClaimEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/api/food/claim",
		map[string]string{"participantId": "t01-m1", "mealType": "Breakfast"}, false)
	if status != http.StatusOK || body["message"] != "Breakfast claimed successfully!" {
		t.Fatalf("claim: %d %v", status, body)
	}
	participant := body["participant"].(map[string]interface{})
	if participant["mealType"] != "breakfast" {
		t.Fatalf("participant = %v", participant)
	}

	status, body = doJSON(t, app, "POST", "/api/food/claim",
		map[string]string{"participant_id": "T01-M1", "meal_type": "breakfast"}, false)
	if status != http.StatusConflict {
		t.Fatalf("second claim status = %d", status)
	}
	if body["message"] != "Breakfast already claimed at 01/03/2025, 8:30:00 am" {
		t.Fatalf("second claim message = %v", body["message"])
	}

	cases := []struct {
		body map[string]string
		want int
	}{
		{map[string]string{"participant_id": "", "meal_type": "lunch"}, http.StatusBadRequest},
		{map[string]string{"participant_id": "X99-M1", "meal_type": "brunch"}, http.StatusBadRequest},
		{map[string]string{"participant_id": "X99-M1", "meal_type": "lunch"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		if status, body := doJSON(t, app, "POST", "/api/food/claim", tc.body, false); status != tc.want {
			t.Errorf("claim %v: %d %v", tc.body, status, body)
		}
	}
}

func TestPublicReadEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	doJSON(t, app, "POST", "/api/food/claim", map[string]string{"participant_id": "T01-M2", "meal_type": "lunch"}, false)

	status, body := doJSON(t, app, "GET", "/api/food/participant/t01-m2", nil, false)
	if status != http.StatusOK {
		t.Fatalf("participant: %d", status)
	}
	meals := body["participant"].(map[string]interface{})["meals"].(map[string]interface{})
	if meals["lunch"].(map[string]interface{})["claimed"] != true {
		t.Fatalf("meals = %v", meals)
	}

	if status, _ := doJSON(t, app, "GET", "/api/food/participant/nobody", nil, false); status != http.StatusNotFound {
		t.Fatalf("unknown participant status = %d", status)
	}

	_, body = doJSON(t, app, "GET", "/api/food/stats", nil, false)
	lunch := body["stats"].(map[string]interface{})["lunch"].(map[string]interface{})
	if lunch["claimed"] != float64(1) || lunch["percentage"] != float64(50) {
		t.Fatalf("lunch stats = %v", lunch)
	}

	_, body = doJSON(t, app, "GET", "/api/food/recent?limit=5", nil, false)
	if body["count"] != float64(1) {
		t.Fatalf("recent = %v", body)
	}
}

func TestResponsesUseCamelCaseFields(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := doJSON(t, app, "POST", "/api/food/claim",
		map[string]string{"participantId": "T01-M1", "mealType": "lunch"}, false)
	participant := body["participant"].(map[string]interface{})
	for _, key := range []string{"participantId", "memberName", "teamId", "teamName", "memberNumber", "mealType", "claimedAt", "allMeals"} {
		if _, ok := participant[key]; !ok {
			t.Errorf("claim participant missing %q: %v", key, participant)
		}
	}
	if participant["participantId"] != "T01-M1" {
		t.Fatalf("participantId = %v", participant["participantId"])
	}
	lunch := participant["allMeals"].(map[string]interface{})["lunch"].(map[string]interface{})
	if _, ok := lunch["claimedAt"]; !ok {
		t.Fatalf("slot = %v", lunch)
	}

	_, body = doJSON(t, app, "POST", "/api/food/claim",
		map[string]string{"participantId": "T01-M1", "mealType": "lunch"}, false)
	dup := body["participant"].(map[string]interface{})
	if dup["participantId"] != "T01-M1" || dup["claimedAt"] == nil {
		t.Fatalf("already claimed participant = %v", dup)
	}

	_, body = doJSON(t, app, "GET", "/api/food/recent", nil, false)
	entry := body["claims"].([]interface{})[0].(map[string]interface{})
	if entry["mealType"] != "lunch" || entry["memberName"] == nil || entry["participant_id"] != nil {
		t.Fatalf("recent entry = %v", entry)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	app, _ := newTestApp(t)
	if status, _ := doJSON(t, app, "GET", "/api/food/admin/stats", nil, false); status != http.StatusUnauthorized {
		t.Fatalf("status = %d", status)
	}
}

func TestAdminClaimFlow(t *testing.T) {
	app, db := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/api/food/admin/manual-claim",
		map[string]string{"participant_id": "T01-M1", "meal_type": "dinner"}, true)
	if status != http.StatusOK {
		t.Fatalf("manual claim: %d %v", status, body)
	}

	status, body = doJSON(t, app, "DELETE", "/api/food/admin/unclaim",
		map[string]string{"participant_id": "T01-M1", "meal_type": "dinner"}, true)
	if status != http.StatusOK || body["message"] != "Dinner unclaimed successfully" {
		t.Fatalf("unclaim: %d %v", status, body)
	}

	status, _ = doJSON(t, app, "DELETE", "/api/food/admin/unclaim",
		map[string]string{"participant_id": "T01-M1", "meal_type": "dinner"}, true)
	if status != http.StatusConflict {
		t.Fatalf("second unclaim status = %d", status)
	}

	var n int64
	db.Model(&models.FoodClaim{}).Count(&n)
	if n != 0 {
		t.Fatalf("history entries = %d", n)
	}
}

func TestAdminTeamViews(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := doJSON(t, app, "GET", "/api/food/admin/all-participants", nil, true)
	if body["totalTeams"] != float64(1) || body["totalParticipants"] != float64(2) {
		t.Fatalf("all participants = %v", body)
	}

	status, body := doJSON(t, app, "GET", "/api/food/admin/team/t01", nil, true)
	if status != http.StatusOK || body["team"].(map[string]interface{})["memberCount"] != float64(2) {
		t.Fatalf("team: %d %v", status, body)
	}
	if status, _ := doJSON(t, app, "GET", "/api/food/admin/team/T77", nil, true); status != http.StatusNotFound {
		t.Fatalf("unknown team status = %d", status)
	}

	_, body = doJSON(t, app, "GET", "/api/food/admin/participants/search?q=bilal", nil, true)
	if body["count"] != float64(1) {
		t.Fatalf("search = %v", body)
	}
}

func TestAdminExport(t *testing.T) {
	app, db := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/food/admin/export", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="food-claims-2025-03-01.xlsx"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != services.ContentType {
		t.Fatalf("Content-Type = %q", got)
	}

	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Participant{})
	if status, _ := doJSON(t, app, "GET", "/api/food/admin/export", nil, true); status != http.StatusNotFound {
		t.Fatalf("empty export status = %d", status)
	}

	if status, _ := doJSON(t, app, "POST", "/api/food/admin/export/archive", nil, true); status != http.StatusServiceUnavailable {
		t.Fatalf("archive without archiver status = %d", status)
	}
}

func TestAdminExportArchive(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestAppWithArchiver(t, &utils.DirArchiver{Dir: dir})

	status, body := doJSON(t, app, "POST", "/api/food/admin/export/archive", nil, true)
	if status != http.StatusCreated {
		t.Fatalf("archive: %d %v", status, body)
	}
	archive := body["archive"].(map[string]interface{})
	key := archive["key"].(string)
	if !strings.HasPrefix(key, "exports/food-claims-2025-03-01-") {
		t.Fatalf("key = %q", key)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("archived file: %v", err)
	}
}

func TestAdminReconcile(t *testing.T) {
	app, db := newTestApp(t)
	orphan := models.FoodClaim{ID: "orphan", ParticipantID: "T01-M2", MealType: models.MealLunch, ClaimedAt: testStart}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	status, body := doJSON(t, app, "POST", "/api/food/admin/reconcile", nil, true)
	if status != http.StatusOK {
		t.Fatalf("reconcile: %d %v", status, body)
	}
	if body["report"].(map[string]interface{})["orphansRemoved"] != float64(1) {
		t.Fatalf("report = %v", body["report"])
	}
}

func TestOpsEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	doJSON(t, app, "POST", "/api/food/claim", map[string]string{"participant_id": "T01-M1", "meal_type": "lunch"}, false)

	if status, body := doJSON(t, app, "GET", "/healthz", nil, false); status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", status, body)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `meals_claim_attempts_total{meal="lunch",outcome="claimed",source="public"} 1`) {
		t.Fatalf("metrics output missing claim counter:\n%s", raw)
	}
}
