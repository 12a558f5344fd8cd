package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"timemesh/backend/internal/domain"
	"timemesh/backend/internal/service"
	"timemesh/backend/internal/store"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Result struct {
	Message string `json:"message"`
	// Update names the frontend resources to refresh after this reply.
	Update []string `json:"update,omitempty"`
}

// Config carries everything the assistant needs; nothing here is a
// package-level singleton, so tests and deployments can swap all of it.
type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	Referer          string
	Title            string
	MaxPromptChars   int
	GeneralPrompt    string
	EventPrompt      string
	GenerateKeywords []string
	Location         *time.Location
	Now              func() time.Time
}

const (
	defaultGeneralPrompt = "You are TimeMesh's scheduling assistant. Answer questions about the user's calendar briefly and helpfully."
	defaultEventPrompt   = "You are TimeMesh's scheduling assistant. Plan events around the user's existing schedule. Reply with a short confirmation followed by a line 'Generated Events:' and a JSON array of objects with title, start, end, bg_color, repeat_type and repeat_until fields."

	// GeneratedCalendarTitle is the calendar that collects
	// assistant-created events.
	GeneratedCalendarTitle = "SMART"

	generationLookahead = 30 * 24 * time.Hour
)

func DefaultConfig() Config {
	return Config{
		MaxPromptChars: 15000,
		GeneralPrompt:  defaultGeneralPrompt,
		EventPrompt:    defaultEventPrompt,
		GenerateKeywords: []string{
			"generate events",
			"create schedule",
			"plan events",
			"generate more events",
		},
		Location: time.UTC,
		Now:      time.Now,
	}
}

type Service struct {
	cfg       Config
	client    *http.Client
	events    store.EventRepository
	calendars store.CalendarRepository
	log       *slog.Logger
}

func NewService(cfg Config, client *http.Client, events store.EventRepository, calendars store.CalendarRepository, log *slog.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 15000
	}
	if cfg.GeneralPrompt == "" {
		cfg.GeneralPrompt = defaultGeneralPrompt
	}
	if cfg.EventPrompt == "" {
		cfg.EventPrompt = defaultEventPrompt
	}
	if len(cfg.GenerateKeywords) == 0 {
		cfg.GenerateKeywords = DefaultConfig().GenerateKeywords
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:       cfg,
		client:    client,
		events:    events,
		calendars: calendars,
		log:       log.With(slog.String("component", "chat")),
	}
}

// Chat routes the conversation: a generation keyword in the user's last
// message triggers event generation, anything else is general chat.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, history []Message) (Result, error) {
	if userID == uuid.Nil {
		return Result{}, service.NewValidationError("user_id is required")
	}
	if len(history) == 0 {
		return Result{}, service.NewValidationError("messages is required")
	}

	last := strings.ToLower(history[len(history)-1].Content)
	for _, kw := range s.cfg.GenerateKeywords {
		if strings.Contains(last, kw) {
			return s.generateEvents(ctx, userID, history)
		}
	}
	return s.generalChat(ctx, history)
}

func (s *Service) generalChat(ctx context.Context, history []Message) (Result, error) {
	reply, err := s.complete(ctx, s.cfg.GeneralPrompt, s.truncate(history))
	if err != nil {
		return Result{}, err
	}
	return Result{Message: reply}, nil
}

func (s *Service) generateEvents(ctx context.Context, userID uuid.UUID, history []Message) (Result, error) {
	now := s.cfg.Now().In(s.cfg.Location)
	existing, err := s.events.ListUpcomingByUser(ctx, userID, now, now.Add(generationLookahead))
	if err != nil {
		return Result{}, fmt.Errorf("load upcoming events: %w", err)
	}

	var sb strings.Builder
	for _, e := range existing {
		fmt.Fprintf(&sb, "Title: %s, Start: %s, End: %s, Color: %s, Repeat: %s",
			e.Title, e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339), e.BgColor, e.RepeatType)
		if e.RepeatUntil != nil {
			fmt.Fprintf(&sb, ", Repeat Until: %s", e.RepeatUntil.Format(time.RFC3339))
		}
		sb.WriteString("\n")
	}

	prompted := make([]Message, len(history))
	copy(prompted, history)
	lastIdx := len(prompted) - 1
	prompted[lastIdx].Content = fmt.Sprintf("Date: %s\n%s\n\nCurrent Events:\n%s",
		now.Format("2006-01-02"), prompted[lastIdx].Content, sb.String())

	reply, err := s.complete(ctx, s.cfg.EventPrompt, s.truncate(prompted))
	if err != nil {
		return Result{}, err
	}

	parsed, err := ParseGeneratedEvents(reply)
	if err != nil {
		return Result{}, service.NewValidationError(err.Error())
	}

	created, err := s.createGeneratedEvents(ctx, userID, parsed)
	if err != nil {
		return Result{}, err
	}
	if created == 0 {
		return Result{}, errors.New("no generated events could be created")
	}

	return Result{
		Message: fmt.Sprintf("Your events have been generated; check the calendar named %q.", GeneratedCalendarTitle),
		Update:  []string{"calendars", "events"},
	}, nil
}

// GeneratedEvent is one entry of the assistant's "Generated Events:"
// JSON block.
type GeneratedEvent struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	BgColor     string `json:"bg_color"`
	RepeatType  string `json:"repeat_type"`
	RepeatUntil string `json:"repeat_until"`
}

var generatedEventsRe = regexp.MustCompile(`(?s)Generated Events:\s*(\[.*?\])`)

// ParseGeneratedEvents extracts the JSON event block from an assistant
// reply.
func ParseGeneratedEvents(message string) ([]GeneratedEvent, error) {
	m := generatedEventsRe.FindStringSubmatch(message)
	if m == nil {
		return nil, errors.New("failed to parse the event details from the assistant response")
	}
	var out []GeneratedEvent
	if err := json.Unmarshal([]byte(m[1]), &out); err != nil {
		return nil, fmt.Errorf("failed to decode generated events: %w", err)
	}
	return out, nil
}

func (s *Service) createGeneratedEvents(ctx context.Context, userID uuid.UUID, generated []GeneratedEvent) (int, error) {
	cal, err := s.calendars.Create(ctx, domain.Calendar{
		OwnerID: userID,
		Title:   GeneratedCalendarTitle,
	})
	if err != nil {
		return 0, fmt.Errorf("create generated calendar: %w", err)
	}

	events := make([]domain.Event, 0, len(generated))
	for _, g := range generated {
		e, err := s.buildEvent(userID, cal.ID, g)
		if err != nil {
			// Bad entries are dropped; the rest of the batch still lands.
			s.log.Warn("skipping generated event",
				slog.String("title", g.Title),
				slog.Any("err", err),
			)
			continue
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return 0, nil
	}

	if _, err := s.events.CreateMany(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

func (s *Service) buildEvent(userID, calendarID uuid.UUID, g GeneratedEvent) (domain.Event, error) {
	start, err := parseLocalTime(g.Start, s.cfg.Location)
	if err != nil {
		return domain.Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseLocalTime(g.End, s.cfg.Location)
	if err != nil {
		return domain.Event{}, fmt.Errorf("end: %w", err)
	}
	if !end.After(start) {
		return domain.Event{}, errors.New("end must be after start")
	}

	repeatType := domain.RepeatNone
	if g.RepeatType != "" {
		repeatType, err = domain.ParseRepeatType(g.RepeatType)
		if err != nil {
			return domain.Event{}, err
		}
	}

	var until *time.Time
	if g.RepeatUntil != "" {
		u, err := parseLocalTime(g.RepeatUntil, s.cfg.Location)
		if err != nil {
			return domain.Event{}, fmt.Errorf("repeat_until: %w", err)
		}
		until = &u
	}

	color := g.BgColor
	if color == "" {
		color = "#FF776F"
	}

	event := domain.Event{
		CalendarID:  calendarID,
		UserID:      userID,
		Title:       g.Title,
		StartTime:   start,
		EndTime:     end,
		BgColor:     color,
		RepeatType:  repeatType,
		RepeatUntil: until,
	}

	cached, err := domain.GenerateOccurrences(start, event.Rule(), domain.DefaultMaxOccurrences)
	if err != nil {
		return domain.Event{}, err
	}
	event.CachedOccurrences = cached
	return event, nil
}

// parseLocalTime accepts RFC 3339 or a zone-less ISO timestamp; the
// latter gets the configured location attached.
func parseLocalTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}

// truncate drops messages from the oldest side until the total content
// length fits the prompt budget.
func (s *Service) truncate(history []Message) []Message {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	out := history
	for total > s.cfg.MaxPromptChars && len(out) > 1 {
		total -= len(out[0].Content)
		out = out[1:]
	}
	return out
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (s *Service) complete(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, history...)

	body, err := json.Marshal(completionRequest{Model: s.cfg.Model, Messages: msgs})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("HTTP-Referer", s.cfg.Referer)
	req.Header.Set("X-Title", s.cfg.Title)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("assistant api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("assistant api returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
