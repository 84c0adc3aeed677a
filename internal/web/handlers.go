package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaltra000/mihrab-sala/internal/content"
	"github.com/zaltra000/mihrab-sala/internal/geo"
	"github.com/zaltra000/mihrab-sala/internal/model"
	"github.com/zaltra000/mihrab-sala/internal/prayertime"
	"github.com/zaltra000/mihrab-sala/internal/scheduler"
	"github.com/zaltra000/mihrab-sala/internal/stats"
	"github.com/zaltra000/mihrab-sala/internal/storage"
)

func (s *Server) today() time.Time {
	return s.now().In(s.loc)
}

// parseDateParam accepts only canonical YYYY-MM-DD keys.
func (s *Server) parseDateParam(c *gin.Context) (string, bool) {
	date := c.Param("date")
	if _, err := model.ParseDate(date, s.loc); err != nil {
		respondError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func (s *Server) handleToday(c *gin.Context) {
	date := model.DateKey(s.today())
	c.JSON(http.StatusOK, gin.H{"date": date, "record": s.store.Record(date)})
}

func (s *Server) handleGetLog(c *gin.Context) {
	date, ok := s.parseDateParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "record": s.store.Record(date)})
}

func (s *Server) handleToggle(c *gin.Context) {
	date, ok := s.parseDateParam(c)
	if !ok {
		return
	}
	prayer, ok := model.ParsePrayer(c.Param("prayer"))
	if !ok {
		respondError(c, http.StatusBadRequest, "unknown prayer")
		return
	}

	record, err := s.store.Toggle(c.Request.Context(), date, prayer)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownPrayer) {
			respondError(c, http.StatusBadRequest, "unknown prayer")
			return
		}
		slog.Error("Failed to toggle prayer", "date", date, "prayer", prayer, "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "record": record})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Compute(s.store.Logs(), s.today()))
}

func (s *Server) handleInsight(c *gin.Context) {
	today := s.today()
	total, todayCount := s.store.Tasbih(model.DateKey(today))
	rec := s.engine.Recommend(s.store.Logs(), today, total, todayCount)

	html, err := content.RenderHTML(rec.Message, rec.Item)
	if err != nil {
		slog.Warn("Failed to render insight card", "item", rec.Item.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"date":           model.DateKey(today),
		"recommendation": rec,
		"html":           html,
	})
}

type tasbihRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

func (s *Server) handleGetTasbih(c *gin.Context) {
	total, today := s.store.Tasbih(model.DateKey(s.today()))
	c.JSON(http.StatusOK, gin.H{"total": total, "today": today, "dhikr": content.DhikrList})
}

func (s *Server) handleAddTasbih(c *gin.Context) {
	var req tasbihRequest
	if !bindJSON(c, &req, "count must be a positive number") {
		return
	}
	total, today, err := s.store.AddTasbih(c.Request.Context(), model.DateKey(s.today()), req.Count)
	if err != nil {
		slog.Error("Failed to add tasbih", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "today": today})
}

type methodOption struct {
	ID    model.CalculationMethod `json:"id"`
	Label string                  `json:"label"`
}

type settingsView struct {
	Coordinates          *model.Coordinates      `json:"coordinates"`
	LocationLabel        string                  `json:"location_label"`
	Method               model.CalculationMethod `json:"calculation_method"`
	MethodLabel          string                  `json:"calculation_method_label"`
	MethodOverridden     bool                    `json:"method_overridden"`
	Madhab               model.Madhab            `json:"madhab"`
	NotificationsEnabled bool                    `json:"notifications_enabled"`
	PushoverUser         string                  `json:"pushover_user"`
	PushoverConfigured   bool                    `json:"pushover_configured"`
	Methods              []methodOption          `json:"methods"`
}

func newSettingsView(st model.Settings) settingsView {
	label := st.LocationLabel
	if label == "" && st.Coordinates == nil {
		label = geo.LabelDefault
	}
	methods := make([]methodOption, 0, len(prayertime.Methods))
	for _, m := range prayertime.Methods {
		methods = append(methods, methodOption{ID: m, Label: prayertime.MethodLabels[m]})
	}
	return settingsView{
		Coordinates:          st.Coordinates,
		LocationLabel:        label,
		Method:               st.Method,
		MethodLabel:          prayertime.MethodLabels[st.Method],
		MethodOverridden:     st.MethodOverridden,
		Madhab:               st.Madhab,
		NotificationsEnabled: st.NotificationsEnabled,
		PushoverUser:         st.PushoverUser,
		PushoverConfigured:   st.PushoverToken != "" && st.PushoverUser != "",
		Methods:              methods,
	}
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, newSettingsView(s.store.GetSettings()))
}

type settingsRequest struct {
	Method               *string `json:"method"`
	Madhab               *string `json:"madhab"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	PushoverToken        *string `json:"pushover_token"`
	PushoverUser         *string `json:"pushover_user"`
	NewPassword          *string `json:"new_password"`
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !bindJSON(c, &req, "invalid settings payload") {
		return
	}

	var (
		method model.CalculationMethod
		madhab model.Madhab
		hash   string
		err    error
	)
	if req.Method != nil {
		if method, err = prayertime.ParseMethod(*req.Method); err != nil {
			respondError(c, http.StatusBadRequest, "unknown calculation method")
			return
		}
	}
	if req.Madhab != nil {
		if madhab, err = prayertime.ParseMadhab(*req.Madhab); err != nil {
			respondError(c, http.StatusBadRequest, "unknown madhab")
			return
		}
	}
	if req.NewPassword != nil && *req.NewPassword != "" {
		if hash, err = hashPassword(*req.NewPassword); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to hash password")
			return
		}
	}

	updated, err := s.store.UpdateSettings(c.Request.Context(), func(st *model.Settings) {
		if req.Method != nil {
			st.Method = method
			st.MethodOverridden = true
		}
		if req.Madhab != nil {
			st.Madhab = madhab
		}
		if req.NotificationsEnabled != nil {
			st.NotificationsEnabled = *req.NotificationsEnabled
		}
		if req.PushoverToken != nil {
			st.PushoverToken = *req.PushoverToken
		}
		if req.PushoverUser != nil {
			st.PushoverUser = *req.PushoverUser
		}
		if hash != "" {
			st.PasswordHash = hash
		}
	})
	if err != nil {
		slog.Error("Failed to update settings", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to update settings")
		return
	}

	s.scheduler.Trigger()
	c.JSON(http.StatusOK, newSettingsView(updated))
}

type locationRequest struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
}

// handleLocation records a device fix, or asks for an IP based position when
// the body carries no coordinates. The calculation method follows the
// country of the first fix unless the user picked one.
func (s *Server) handleLocation(c *gin.Context) {
	var req locationRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, "invalid location payload") {
			return
		}
	}

	var fix *model.Coordinates
	if req.Latitude != nil || req.Longitude != nil {
		if req.Latitude == nil || req.Longitude == nil ||
			*req.Latitude < -90 || *req.Latitude > 90 ||
			*req.Longitude < -180 || *req.Longitude > 180 {
			respondError(c, http.StatusBadRequest, "lat and lng must both be present and in range")
			return
		}
		fix = &model.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	place := s.locator.Resolve(c.Request.Context(), fix)

	updated, err := s.store.UpdateSettings(c.Request.Context(), func(st *model.Settings) {
		if place.Coordinates == nil {
			if st.Coordinates == nil {
				st.LocationLabel = place.Label
			}
			return
		}
		firstFix := st.Coordinates == nil
		st.Coordinates = place.Coordinates
		st.LocationLabel = place.Label
		if firstFix && !st.MethodOverridden && place.CountryCode != "" {
			st.Method = prayertime.MethodForCountry(place.CountryCode)
		}
	})
	if err != nil {
		slog.Error("Failed to save location", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to save location")
		return
	}

	s.scheduler.Trigger()
	c.JSON(http.StatusOK, gin.H{"place": place, "settings": newSettingsView(updated)})
}

// coordsAndParams substitutes the default location when no fix is stored.
func (s *Server) coordsAndParams() (model.Coordinates, prayertime.Params, error) {
	settings := s.store.GetSettings()
	coords := prayertime.DefaultCoordinates
	if settings.Coordinates != nil {
		coords = *settings.Coordinates
	}
	params, err := prayertime.ParamsFor(settings.Method, settings.Madhab)
	return coords, params, err
}

func respondCalcError(c *gin.Context, err error) {
	if errors.Is(err, prayertime.ErrUndefined) {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Error("Prayer time calculation failed", "error", err)
	respondError(c, http.StatusInternalServerError, "prayer time calculation failed")
}

func (s *Server) handlePrayerTimes(c *gin.Context) {
	date := s.today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := model.ParseDate(raw, s.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	coords, params, err := s.coordsAndParams()
	if err != nil {
		respondCalcError(c, err)
		return
	}
	times, err := s.calc.Times(coords, date, params)
	if err != nil {
		respondCalcError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coordinates": coords, "method": params.Method, "times": times})
}

type upcomingView struct {
	Prayer           model.PrayerName `json:"prayer"`
	Name             string           `json:"name"`
	At               time.Time        `json:"at"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	Remaining        string           `json:"remaining"`
}

func (s *Server) nextPrayer() (upcomingView, error) {
	coords, params, err := s.coordsAndParams()
	if err != nil {
		return upcomingView{}, err
	}
	up, err := prayertime.Next(s.calc, coords, params, s.today())
	if err != nil {
		return upcomingView{}, err
	}
	return upcomingView{
		Prayer:           up.Prayer,
		Name:             up.Prayer.Arabic(),
		At:               up.At,
		RemainingSeconds: int64(up.Remaining / time.Second),
		Remaining:        prayertime.FormatRemaining(up.Remaining),
	}, nil
}

func (s *Server) handleNextPrayer(c *gin.Context) {
	view, err := s.nextPrayer()
	if err != nil {
		respondCalcError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleNextPrayerStream pushes a countdown event every tick until the
// client goes away.
func (s *Server) handleNextPrayerStream(c *gin.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	ctx := c.Request.Context()
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
		first = false

		view, err := s.nextPrayer()
		if err != nil {
			c.SSEvent("error", gin.H{"error": err.Error()})
			return false
		}
		c.SSEvent("countdown", view)
		return true
	})
}

func (s *Server) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": s.store.GetAllNotifications()})
}

func (s *Server) handleTestNotification(c *gin.Context) {
	n, err := s.scheduler.Test(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrPermissionDenied) {
			respondError(c, http.StatusConflict, "no notification channel configured")
			return
		}
		slog.Error("Failed to schedule test notification", "error", err)
		respondError(c, http.StatusInternalServerError, "failed to schedule test notification")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"notification": n})
}
