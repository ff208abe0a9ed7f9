package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/suggestit/analytics"
	"github.com/poiesic/suggestit/catalog"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ingest"
)

// VariantHeader overrides the experiment variant carried in the body.
const VariantHeader = "X-AB-Variant"

// maxBodyBytes bounds every request body.
const maxBodyBytes = 8 << 20

type suggestRequest struct {
	CurrentQuery string   `json:"current_query"`
	UserID       string   `json:"user_id"`
	History      []string `json:"user_search_history"`
	SiteData     any      `json:"site_data"`
	Location     string   `json:"user_location"`
	Latitude     *float64 `json:"user_latitude"`
	Longitude    *float64 `json:"user_longitude"`
	Debug        bool     `json:"debug"`
	Variant      string   `json:"ab_variant"`
}

type feedbackRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Selected string `json:"selected_suggestion"`
	Rating   int    `json:"success_rating"`
	Location string `json:"location"`
}

type dataRequest struct {
	Type    string              `json:"type"`
	Content *core.ManualContent `json:"content"`
	AddedBy string              `json:"added_by"`
}

type eventRequest struct {
	UserID  string          `json:"user_id"`
	Type    string          `json:"event_type"`
	Payload json.RawMessage `json:"payload"`
}

type manualView struct {
	ID         core.ID            `json:"id"`
	Type       core.ManualKind    `json:"type"`
	Content    core.ManualContent `json:"content"`
	AddedBy    string             `json:"added_by"`
	Active     bool               `json:"active"`
	InsertedAt time.Time          `json:"inserted_at"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Type     string `json:"type,omitempty"`
	Imported *int   `json:"imported,omitempty"`
	Failed   *int   `json:"failed,omitempty"`
}

// decode reads a JSON body into v. Malformed bodies are invalid input.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %w", core.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	var body suggestRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	variant := r.Header.Get(VariantHeader)
	if variant == "" {
		variant = body.Variant
	}

	resp, err := s.backend.Rank(r.Context(), &core.RankRequest{
		Query:     body.CurrentQuery,
		UserID:    body.UserID,
		History:   body.History,
		Catalog:   catalog.FromValue(body.SiteData),
		Location:  body.Location,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Debug:     body.Debug,
		Variant:   variant,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if resp.Cards == nil {
		resp.Cards = []core.Card{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.backend.Feedback(r.Context(), &core.Feedback{
		UserID:   body.UserID,
		Query:    body.Query,
		Selected: body.Selected,
		Rating:   body.Rating,
		Location: body.Location,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "feedback_received"})
}

func (s *Server) addData(w http.ResponseWriter, r *http.Request) {
	var body dataRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	kind := strings.TrimSpace(body.Type)
	if kind == "" || body.Content == nil {
		s.writeError(w, r, fmt.Errorf("%w: type and content are required", core.ErrInvalidInput))
		return
	}

	record, err := s.backend.AddManual(r.Context(), core.ManualKind(kind), *body.Content, body.AddedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "data_added", Type: string(record.Kind)})
}

func (s *Server) listData(w http.ResponseWriter, r *http.Request) {
	kind := core.ManualKind(strings.TrimSpace(r.URL.Query().Get("type")))
	records, err := s.backend.ListManual(r.Context(), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]manualView, 0, len(records))
	for _, rec := range records {
		data = append(data, manualView{
			ID:         rec.Id,
			Type:       rec.Kind,
			Content:    rec.Content,
			AddedBy:    rec.AddedBy,
			Active:     rec.Active,
			InsertedAt: rec.InsertedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data, "count": len(data)})
}

func (s *Server) batchImport(w http.ResponseWriter, r *http.Request) {
	var batch ingest.Batch
	if err := decode(r, &batch); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.backend.Import(r.Context(), &batch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Imported: &result.Imported, Failed: &result.Failed})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.backend.Analytics(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if strings.EqualFold(q.Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := analytics.WriteCSV(w, report); err != nil {
			s.logger.Error("error writing csv", "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) event(w http.ResponseWriter, r *http.Request) {
	var body eventRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := string(body.Payload)
	if len(body.Payload) == 0 || payload == "null" {
		payload = "{}"
	}

	err := s.backend.TrackEvent(&core.Event{UserID: body.UserID, Type: body.Type, Payload: payload})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Accepted forms for the analytics window bounds.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

const dateLayout = "2006-01-02"

// parseRange reads the optional window bounds. A bare date as end covers the
// whole day.
func parseRange(start, end string) (analytics.Range, error) {
	var rng analytics.Range
	var err error
	if rng.Start, err = parseTime(start, false); err != nil {
		return rng, err
	}
	if rng.End, err = parseTime(end, true); err != nil {
		return rng, err
	}
	return rng, rng.Validate()
}

func parseTime(v string, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable time %q", core.ErrInvalidInput, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
