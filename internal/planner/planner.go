// Package planner turns a series topic into a scheduled content calendar:
// a platform breakdown, evenly spread slots, and model-generated video
// ideas to fill them.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/pkg/prompts"
)

// Weeks covered by each planning horizon.
var horizonWeeks = map[string]int{
	"1_week":   1,
	"1_month":  4,
	"3_months": 12,
}

type CalendarRequest struct {
	Topic       string              `json:"topic"`
	Platforms   []model.VideoFormat `json:"platforms"`
	WeeklyGoal  int                 `json:"weekly_goal"`
	TimeHorizon string              `json:"time_horizon"`
}

type SlotRequest struct {
	Topic         string            `json:"topic"`
	Format        model.VideoFormat `json:"format"`
	ScheduledDate time.Time         `json:"scheduled_date"`
	ExcludeTitles []string          `json:"exclude_titles"`
	VideoID       string            `json:"video_id,omitempty"`
}

type Service struct {
	gateway llm.Gateway
	store   *store.MemoryStore
}

func NewService(gateway llm.Gateway, st *store.MemoryStore) *Service {
	return &Service{gateway: gateway, store: st}
}

// WeeksFor maps a planning horizon to its week count. Unknown horizons
// plan a single week.
func WeeksFor(horizon string) int {
	if w, ok := horizonWeeks[horizon]; ok {
		return w
	}
	return 1
}

// PlatformBreakdown splits a total video count across target platforms.
// With youtube plus others, youtube takes a quarter (at least one) and the
// rest is floor-divided among the others with the remainder going to the
// earliest platforms. Without youtube the split is even.
func PlatformBreakdown(total int, platforms []model.VideoFormat) map[model.VideoFormat]int {
	breakdown := map[model.VideoFormat]int{}
	if total <= 0 || len(platforms) == 0 {
		return breakdown
	}

	hasYouTube := false
	var others []model.VideoFormat
	for _, p := range platforms {
		if p == model.FormatYouTube {
			hasYouTube = true
		} else {
			others = append(others, p)
		}
	}

	switch {
	case hasYouTube && len(others) > 0:
		ytCount := (total + 2) / 4 // round(total/4)
		if ytCount < 1 {
			ytCount = 1
		}
		breakdown[model.FormatYouTube] = ytCount
		othersTotal := total - ytCount
		per := othersTotal / len(others)
		remainder := othersTotal % len(others)
		for i, p := range others {
			breakdown[p] = per
			if i < remainder {
				breakdown[p]++
			}
		}
	case hasYouTube:
		breakdown[model.FormatYouTube] = total
	default:
		per := total / len(others)
		remainder := total % len(others)
		for i, p := range others {
			breakdown[p] = per
			if i < remainder {
				breakdown[p]++
			}
		}
	}
	return breakdown
}

// slot is one position in the calendar before an idea fills it.
type slot struct {
	Index         int
	Format        model.VideoFormat
	ScheduledDate time.Time
}

// BuildSlots lays the breakdown out across the planning period, spreading
// dates evenly starting from now.
func BuildSlots(breakdown map[model.VideoFormat]int, platforms []model.VideoFormat, weeks int, now time.Time) []slot {
	total := 0
	for _, n := range breakdown {
		total += n
	}
	if total == 0 {
		return nil
	}

	period := time.Duration(weeks) * 7 * 24 * time.Hour
	step := period / time.Duration(total)

	// Preserve the caller's platform order for deterministic output.
	var slots []slot
	idx := 0
	for _, p := range platforms {
		for i := 0; i < breakdown[p]; i++ {
			slots = append(slots, slot{
				Index:         idx + 1,
				Format:        p,
				ScheduledDate: now.Add(time.Duration(idx) * step),
			})
			idx++
		}
	}
	return slots
}

type ideaItem struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GenerateCalendar plans a full calendar for a series and persists every
// video. When the model fails or returns partial output, unfilled slots get
// placeholder titles instead of being dropped.
func (s *Service) GenerateCalendar(ctx context.Context, userID, seriesID string, req CalendarRequest) ([]model.Video, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", model.ErrInvalid)
	}
	if _, err := s.store.GetSeries(userID, seriesID); err != nil {
		return nil, err
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = []model.VideoFormat{model.FormatYouTube, model.FormatYouTubeShort}
	}
	weeklyGoal := req.WeeklyGoal
	if weeklyGoal <= 0 {
		weeklyGoal = 3
	}
	weeks := WeeksFor(req.TimeHorizon)
	total := weeks * weeklyGoal

	breakdown := PlatformBreakdown(total, platforms)
	slots := BuildSlots(breakdown, platforms, weeks, time.Now().UTC())

	ideas := s.fillSlots(ctx, userID, req.Topic, slots)

	var videos []model.Video
	for _, sl := range slots {
		idea, ok := ideas[sl.Index]
		if !ok {
			idea = ideaItem{
				Title:       fmt.Sprintf("%s - Part %d", req.Topic, sl.Index),
				Description: fmt.Sprintf("An exploration of %s.", req.Topic),
			}
		}
		video, err := s.store.CreateVideo(userID, model.Video{
			SeriesID:      seriesID,
			Title:         idea.Title,
			Description:   idea.Description,
			Format:        sl.Format,
			Status:        model.StatusPlanned,
			ScheduledDate: sl.ScheduledDate,
		})
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (s *Service) fillSlots(ctx context.Context, userID, topic string, slots []slot) map[int]ideaItem {
	ideas := map[int]ideaItem{}
	if len(slots) == 0 {
		return ideas
	}

	var b strings.Builder
	for _, sl := range slots {
		fmt.Fprintf(&b, "%d. %s, scheduled %s\n", sl.Index, formatLabel(sl.Format), sl.ScheduledDate.Format("2006-01-02"))
	}

	overrides := s.store.GetSettings(userID).PromptOverrides
	system := prompts.Resolve(prompts.PlannerSystem, overrides)
	user := prompts.Fill(prompts.Resolve(prompts.PlannerUser, overrides), map[string]string{
		"topic": topic,
		"slots": b.String(),
	})

	// json_object mode steers the model toward a top-level object, so the
	// array rides under an "ideas" key.
	var reply struct {
		Ideas []ideaItem `json:"ideas"`
	}
	err := s.gateway.InvokeJSON(ctx, llm.Request{
		Tier:      llm.TierBalanced,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens: 4096,
	}, &reply)
	if err != nil {
		slog.Warn("calendar generation failed, using placeholders", "error", err)
		return ideas
	}

	for _, item := range reply.Ideas {
		if item.Title == "" {
			continue
		}
		ideas[item.Index] = item
	}
	return ideas
}

// RegenerateSlot produces one fresh idea for a single calendar slot,
// avoiding the titles already in use. With VideoID set the existing video
// is updated in place; otherwise a new one is created.
func (s *Service) RegenerateSlot(ctx context.Context, userID, seriesID string, req SlotRequest) (model.Video, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return model.Video{}, fmt.Errorf("%w: topic is required", model.ErrInvalid)
	}
	if _, err := s.store.GetSeries(userID, seriesID); err != nil {
		return model.Video{}, err
	}
	format := req.Format
	if format == "" {
		format = model.FormatYouTube
	}

	user := fmt.Sprintf("Generate a unique video idea about %q for %s.", req.Topic, formatLabel(format))
	if len(req.ExcludeTitles) > 0 {
		user += "\n\nIMPORTANT: Do NOT use any of these existing titles or similar ideas:\n- " +
			strings.Join(req.ExcludeTitles, "\n- ")
	}

	system := `You are a content strategist for documentary video content.
Respond in JSON format with: { "title": "string", "description": "string" }
The title should be catchy and specific. The description should be 1-2 sentences explaining the angle.`

	var idea struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	err := s.gateway.InvokeJSON(ctx, llm.Request{
		Tier:      llm.TierBalanced,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens: 1024,
	}, &idea)
	if err != nil || idea.Title == "" {
		idea.Title = fmt.Sprintf("%s - %s", req.Topic, format)
		idea.Description = fmt.Sprintf("A video about %s.", req.Topic)
	}

	scheduled := req.ScheduledDate
	if scheduled.IsZero() {
		scheduled = time.Now().UTC()
	}

	if req.VideoID != "" {
		existing, err := s.store.GetVideo(userID, req.VideoID)
		if err != nil {
			return model.Video{}, err
		}
		existing.Title = idea.Title
		existing.Description = idea.Description
		existing.Format = format
		existing.ScheduledDate = scheduled
		return s.store.UpdateVideo(userID, existing)
	}

	return s.store.CreateVideo(userID, model.Video{
		SeriesID:      seriesID,
		Title:         idea.Title,
		Description:   idea.Description,
		Format:        format,
		Status:        model.StatusPlanned,
		ScheduledDate: scheduled,
	})
}

// LuckyTopic asks the model for a single documentary topic suggestion.
func (s *Service) LuckyTopic(ctx context.Context) (string, error) {
	topic, err := s.gateway.Invoke(ctx, llm.Request{
		Tier:        llm.TierFast,
		System:      "You are a creative documentary producer. Generate a single compelling topic for a documentary series. Be specific but not overly narrow. Just respond with the topic itself, no explanation.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Suggest one interesting documentary topic."}},
		MaxTokens:   100,
		Temperature: 1.0,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(topic), nil
}

func formatLabel(f model.VideoFormat) string {
	return strings.ReplaceAll(string(f), "_", " ")
}
