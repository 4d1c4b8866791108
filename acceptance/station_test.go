package acceptance

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

type stationResponse struct {
	Key              string            `json:"key"`
	ID               int64             `json:"id"`
	Address          string            `json:"address"`
	Serviced         bool              `json:"serviced"`
	ServicedBy       string            `json:"servicedBy"`
	ServicedByName   string            `json:"servicedByName"`
	ServicedDate     *time.Time        `json:"servicedDate"`
	Urgent           bool              `json:"urgent"`
	PhotoURLs        []string          `json:"photoUrls"`
	LastComment      string            `json:"lastComment"`
	ResponsibleName  string            `json:"responsibleName"`
	ResponsiblePhone string            `json:"responsiblePhone"`
	Comments         []commentResponse `json:"comments"`
}

type commentResponse struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Timestamp  time.Time `json:"timestamp"`
}

func getStation(t *testing.T, ts *TestServer, id string, headers map[string]string) stationResponse {
	t.Helper()
	w := ts.GET("/stations/"+id, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching station %s, got %d: %s", id, w.Code, w.Body.String())
	}
	var resp stationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode station response: %v", err)
	}
	return resp
}

func TestGetStationResolvesBothKeyLayouts(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000001", "Инженер Один")
	headers := ts.AuthHeaders(t, "79990000001")

	ts.CreateLegacyStation(t, 101, "Legacy Street 1")
	modernKey := ts.CreateModernStation(t, 202, "Modern Street 2")

	legacy := getStation(t, ts, "101", headers)
	if legacy.ID != 101 || legacy.Address != "Legacy Street 1" {
		t.Errorf("unexpected legacy station: %+v", legacy)
	}
	if legacy.Key != "101" {
		t.Errorf("legacy station key = %q, want %q", legacy.Key, "101")
	}

	modern := getStation(t, ts, "202", headers)
	if modern.ID != 202 || modern.Address != "Modern Street 2" {
		t.Errorf("unexpected modern station: %+v", modern)
	}
	if modern.Key != modernKey {
		t.Errorf("modern station key = %q, want %q", modern.Key, modernKey)
	}
}

func TestGetStationNotFound(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000001", "")
	headers := ts.AuthHeaders(t, "79990000001")

	w := ts.GET("/stations/999", headers)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStationsRequireAuth(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.GET("/stations", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestMarkServicedThenGet(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000002", "Петров П.П.")
	headers := ts.AuthHeaders(t, "79990000002")
	ts.CreateModernStation(t, 300, "Serviced Street")

	w := ts.POST("/stations/300/serviced", map[string]string{"comment": "replaced cable"}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s := getStation(t, ts, "300", headers)
	if !s.Serviced {
		t.Error("station should be serviced")
	}
	if s.ServicedBy != "79990000002" {
		t.Errorf("servicedBy = %q, want actor phone", s.ServicedBy)
	}
	if s.ServicedByName != "Петров П.П." {
		t.Errorf("servicedByName = %q, want actor name", s.ServicedByName)
	}
	if s.ServicedDate == nil {
		t.Error("servicedDate should be set")
	}
	if s.LastComment != "replaced cable" {
		t.Errorf("lastComment = %q, want %q", s.LastComment, "replaced cable")
	}
	if len(s.Comments) != 1 {
		t.Fatalf("expected exactly one comment, got %d", len(s.Comments))
	}
	last := s.Comments[len(s.Comments)-1]
	if last.Text != "replaced cable" || last.AuthorID != "79990000002" {
		t.Errorf("unexpected comment at log tail: %+v", last)
	}
}

func TestMarkServicedBlankCommentSkipsLog(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000002", "")
	headers := ts.AuthHeaders(t, "79990000002")
	ts.CreateLegacyStation(t, 301, "Quiet Street")

	w := ts.POST("/stations/301/serviced", map[string]string{"comment": "   "}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s := getStation(t, ts, "301", headers)
	if !s.Serviced {
		t.Error("station should be serviced")
	}
	if len(s.Comments) != 0 {
		t.Errorf("blank comment must not be appended, log has %d entries", len(s.Comments))
	}
	if s.LastComment != "   " {
		t.Errorf("lastComment = %q, want the raw comment text", s.LastComment)
	}
}

func TestResetServiceClearsFieldsAndLog(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000003", "Сидоров С.С.")
	headers := ts.AuthHeaders(t, "79990000003")
	ts.CreateModernStation(t, 400, "Reset Street")

	// build up a comment log
	for i := 0; i < 10; i++ {
		w := ts.POST("/stations/400/serviced", map[string]string{"comment": "note"}, headers)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 marking serviced, got %d", w.Code)
		}
	}

	w := ts.POST("/stations/400/reset", nil, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s := getStation(t, ts, "400", headers)
	if s.Serviced {
		t.Error("station should not be serviced after reset")
	}
	if s.ServicedBy != "" || s.ServicedByName != "" || s.ServicedDate != nil {
		t.Errorf("service fields should be cleared: %+v", s)
	}
	if len(s.Comments) != 0 {
		t.Errorf("comment log should be empty after reset, got %d entries", len(s.Comments))
	}
}

func TestMarkMultipleServicedPartialFailure(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000004", "Бригадир")
	headers := ts.AuthHeaders(t, "79990000004")

	ts.CreateLegacyStation(t, 500, "Bulk A")
	ts.CreateModernStation(t, 502, "Bulk C")
	// 501 intentionally absent

	w := ts.POST("/stations/serviced", map[string]interface{}{
		"ids":     []int64{500, 501, 502},
		"comment": "bulk pass",
	}, headers)
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		FailedIDs []int64 `json:"failedIds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.FailedIDs) != 1 || resp.FailedIDs[0] != 501 {
		t.Errorf("failedIds = %v, want [501]", resp.FailedIDs)
	}

	for _, id := range []string{"500", "502"} {
		s := getStation(t, ts, id, headers)
		if !s.Serviced {
			t.Errorf("station %s should be serviced despite partial failure", id)
		}
		if len(s.Comments) != 1 || s.Comments[0].Text != "bulk pass" {
			t.Errorf("station %s should carry the bulk comment, got %+v", id, s.Comments)
		}
	}
}

func TestMarkMultipleServicedAllResolve(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000004", "")
	headers := ts.AuthHeaders(t, "79990000004")

	ts.CreateLegacyStation(t, 510, "Bulk D")
	ts.CreateModernStation(t, 511, "Bulk E")

	w := ts.POST("/stations/serviced", map[string]interface{}{
		"ids": []int64{510, 511},
	}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetUrgentAndResponsible(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000005", "")
	headers := ts.AuthHeaders(t, "79990000005")
	ts.CreateModernStation(t, 600, "Flag Street")

	w := ts.PUT("/stations/600/urgent", map[string]bool{"urgent": true}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.PUT("/stations/600/responsible", map[string]string{
		"name":  "Иванова И.И.",
		"phone": "79995554433",
	}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s := getStation(t, ts, "600", headers)
	if !s.Urgent {
		t.Error("urgent flag should be set")
	}
	if s.ResponsibleName != "Иванова И.И." || s.ResponsiblePhone != "79995554433" {
		t.Errorf("unexpected responsible contact: %+v", s)
	}
	if s.Serviced {
		t.Error("urgent/responsible updates must not touch service state")
	}
}

func TestUploadPhotoAttachesURL(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000006", "")
	headers := ts.AuthHeaders(t, "79990000006")
	ts.CreateLegacyStation(t, 700, "Photo Street")

	before := getStation(t, ts, "700", headers)

	w := ts.POSTRaw("/stations/700/photos", []byte("jpeg-bytes-1"), headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var upload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &upload); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	if upload.URL == "" {
		t.Fatal("upload response should carry the photo URL")
	}

	after := getStation(t, ts, "700", headers)
	if len(after.PhotoURLs) != len(before.PhotoURLs)+1 {
		t.Errorf("photoUrls should grow by one, before=%d after=%d", len(before.PhotoURLs), len(after.PhotoURLs))
	}
	if after.PhotoURLs[len(after.PhotoURLs)-1] != upload.URL {
		t.Errorf("last photoUrl = %q, want uploaded %q", after.PhotoURLs[len(after.PhotoURLs)-1], upload.URL)
	}

	if len(ts.Blobs.Blobs) != 1 {
		t.Errorf("expected one stored blob, got %d", len(ts.Blobs.Blobs))
	}
}

func TestListStationsIncludesBackingKeys(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestUser(t, "79990000007", "")
	headers := ts.AuthHeaders(t, "79990000007")

	ts.CreateLegacyStation(t, 800, "List A")
	modernKey := ts.CreateModernStation(t, 801, "List B")

	w := ts.GET("/stations", headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp []stationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(resp))
	}
	if resp[0].Key != "800" || resp[1].Key != modernKey {
		t.Errorf("unexpected backing keys in list: %q, %q", resp[0].Key, resp[1].Key)
	}
}
