package domain_test

import (
	"context"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/require"

	"github.com/skozubek/startsnap/internal/domain"
	"github.com/skozubek/startsnap/internal/persistence/memory"
	"github.com/skozubek/startsnap/internal/platform/events"
)

var testWallet = types.Address{0x42, 0x13, 0x37}.String()

func newService(t *testing.T) (*domain.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	return domain.NewService(repo), repo
}

func validInput() domain.StartSnapInput {
	return domain.StartSnapInput{
		Name:        "  Vibe Tracker ",
		Description: "Track the vibes of your side project.",
		Category:    "Productivity",
		Type:        "idea",
		Tags:        []string{"Go", "go", " SaaS "},
	}
}

func TestCreateStartSnapNormalizesAndWritesLaunchLog(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	snap, err := svc.CreateStartSnap(ctx, "user-1", validInput())
	require.NoError(t, err)
	require.Equal(t, "Vibe Tracker", snap.Name)
	require.Equal(t, "productivity", snap.Category)
	require.Equal(t, []string{"go", "saas"}, snap.Tags)

	logs, err := svc.ListVibeLogs(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, domain.LogTypeLaunch, logs[0].LogType)

	evts := repo.Events()
	require.Len(t, evts, 1)
	require.Equal(t, events.TypeStartSnapCreated, evts[0].Type)

	activity, _, err := svc.ListOwnActivity(ctx, "user-1", nil, 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	require.Equal(t, domain.ActionStartSnapCreated, activity[0].ActionType)
}

func TestCreateStartSnapValidation(t *testing.T) {
	svc, _ := newService(t)

	in := validInput()
	in.Type = domain.TypeLive
	in.Name = "ab"
	in.Category = "cooking"
	in.DemoURL = "ftp://example.com"
	_, err := svc.CreateStartSnap(context.Background(), "user-1", in)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")
	require.Contains(t, verr.Fields, "category")
	require.Contains(t, verr.Fields, "live_demo_url")
	require.Contains(t, verr.Fields, "demo_url")

	_, err = svc.CreateStartSnap(context.Background(), "", validInput())
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	snap, err := svc.CreateStartSnap(ctx, "owner", validInput())
	require.NoError(t, err)

	name := "Renamed Project"
	_, err = svc.UpdateStartSnap(ctx, "intruder", snap.ID, domain.StartSnapPatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateStartSnap(ctx, "owner", snap.ID, domain.StartSnapPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, snap.Description, updated.Description)

	require.ErrorIs(t, svc.DeleteStartSnap(ctx, "intruder", snap.ID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteStartSnap(ctx, "owner", snap.ID))

	_, err = svc.GetStartSnap(ctx, "", snap.ID)
	require.ErrorIs(t, err, domain.ErrStartSnapNotFound)
}

func TestToggleSupport(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	snap, err := svc.CreateStartSnap(ctx, "creator", validInput())
	require.NoError(t, err)

	_, err = svc.ToggleSupport(ctx, "creator", snap.ID)
	require.ErrorIs(t, err, domain.ErrSelfSupport)

	res, err := svc.ToggleSupport(ctx, "fan", snap.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SupportResult{Supported: true, SupportCount: 1}, res)

	detail, err := svc.GetStartSnap(ctx, "fan", snap.ID)
	require.NoError(t, err)
	require.True(t, detail.SupportedByViewer)
	require.Equal(t, 1, detail.StartSnap.SupportCount)

	res, err = svc.ToggleSupport(ctx, "fan", snap.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SupportResult{Supported: false, SupportCount: 0}, res)

	received, _, err := svc.ListOwnActivity(ctx, "creator", nil, 10)
	require.NoError(t, err)
	actions := make([]string, 0, len(received))
	for _, a := range received {
		actions = append(actions, a.ActionType)
	}
	require.Contains(t, actions, domain.ActionSupportReceived)
}

func TestFeedbackLifecycleMaintainsCount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	snap, err := svc.CreateStartSnap(ctx, "creator", validInput())
	require.NoError(t, err)

	fb, err := svc.PostFeedback(ctx, "reviewer", snap.ID, "  Love the onboarding flow. ")
	require.NoError(t, err)
	require.Equal(t, "Love the onboarding flow.", fb.Content)

	detail, err := svc.GetStartSnap(ctx, "", snap.ID)
	require.NoError(t, err)
	require.Equal(t, 1, detail.StartSnap.FeedbackCount)

	_, err = svc.UpdateFeedback(ctx, "someone-else", snap.ID, fb.ID, "edited")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.PostFeedback(ctx, "reviewer", snap.ID, "   ")
	require.True(t, domain.IsValidation(err))

	require.NoError(t, svc.DeleteFeedback(ctx, "reviewer", snap.ID, fb.ID))
	detail, err = svc.GetStartSnap(ctx, "", snap.ID)
	require.NoError(t, err)
	require.Zero(t, detail.StartSnap.FeedbackCount)
}

func TestVibeLogsOwnerOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	snap, err := svc.CreateStartSnap(ctx, "creator", validInput())
	require.NoError(t, err)

	_, err = svc.CreateVibeLog(ctx, "other", snap.ID, domain.VibeLogInput{LogType: "update", Title: "x", Content: "y"})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.CreateVibeLog(ctx, "creator", snap.ID, domain.VibeLogInput{LogType: "release", Title: "x", Content: "y"})
	require.True(t, domain.IsValidation(err))

	entry, err := svc.CreateVibeLog(ctx, "creator", snap.ID, domain.VibeLogInput{LogType: "Feature", Title: "Dark mode", Content: "Shipped dark mode."})
	require.NoError(t, err)
	require.Equal(t, domain.LogTypeFeature, entry.LogType)

	edited, err := svc.UpdateVibeLog(ctx, "creator", snap.ID, entry.ID, domain.VibeLogInput{LogType: "fix", Title: "Dark mode fix", Content: "Fixed contrast."})
	require.NoError(t, err)
	require.Equal(t, "Dark mode fix", edited.Title)

	require.NoError(t, svc.DeleteVibeLog(ctx, "creator", snap.ID, entry.ID))
	_, err = svc.UpdateVibeLog(ctx, "creator", snap.ID, entry.ID, domain.VibeLogInput{LogType: "fix", Title: "a", Content: "b"})
	require.ErrorIs(t, err, domain.ErrVibeLogNotFound)
}

func TestProfilesAndWallet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.UpsertProfile(ctx, "user-1", domain.ProfileInput{Username: "Ada_Builds", Status: "shipping"})
	require.NoError(t, err)
	require.Equal(t, "ada_builds", p.Username)
	require.Equal(t, domain.GeneratedAvatarURL("ada_builds"), p.AvatarURL)

	_, err = svc.UpsertProfile(ctx, "user-2", domain.ProfileInput{Username: "ADA_BUILDS"})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = svc.UpsertProfile(ctx, "user-2", domain.ProfileInput{Username: "no spaces allowed"})
	require.True(t, domain.IsValidation(err))

	_, err = svc.ConnectWallet(ctx, "user-1", "NOT-AN-ADDRESS")
	require.True(t, domain.IsValidation(err))

	p, err = svc.ConnectWallet(ctx, "user-1", testWallet)
	require.NoError(t, err)
	require.Equal(t, testWallet, p.WalletAddress)

	// Editing the profile keeps the wallet.
	p, err = svc.UpsertProfile(ctx, "user-1", domain.ProfileInput{Username: "ada_builds", Bio: "hi"})
	require.NoError(t, err)
	require.Equal(t, testWallet, p.WalletAddress)

	p, err = svc.RemoveWallet(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, p.WalletAddress)

	_, err = svc.ConnectWallet(ctx, "no-profile", testWallet)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	public, _, err := svc.ListPublicActivity(ctx, "ada_builds", nil, 10)
	require.NoError(t, err)
	require.Empty(t, public, "profile and wallet activity is private")

	own, _, err := svc.ListOwnActivity(ctx, "user-1", nil, 10)
	require.NoError(t, err)
	require.Len(t, own, 4)
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a := validInput()
	a.Name = "Alpha Notes"
	a.Tags = []string{"notes", "ai"}
	a.Category = "ai"
	_, err := svc.CreateStartSnap(ctx, "u1", a)
	require.NoError(t, err)

	b := validInput()
	b.Name = "Beta Budget"
	b.Description = "Budgeting for hackers and notes lovers."
	b.Category = "finance"
	b.Type = domain.TypeLive
	b.LiveDemoURL = "https://beta.example.com"
	b.IsHackathonEntry = true
	_, err = svc.CreateStartSnap(ctx, "u2", b)
	require.NoError(t, err)

	items, q, err := svc.DiscoverStartSnaps(ctx, domain.DiscoverQuery{Query: "NOTES", Sort: domain.SortName})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultDiscoverLimit, q.Limit)
	require.Len(t, items, 2)
	require.Equal(t, "Alpha Notes", items[0].Name)

	items, _, err = svc.DiscoverStartSnaps(ctx, domain.DiscoverQuery{Tags: []string{"AI", "notes"}})
	require.NoError(t, err)
	require.Len(t, items, 1)

	yes := true
	items, _, err = svc.DiscoverStartSnaps(ctx, domain.DiscoverQuery{Hackathon: &yes, Type: "live"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Beta Budget", items[0].Name)

	_, q, err = svc.DiscoverStartSnaps(ctx, domain.DiscoverQuery{Limit: 500, Offset: -3, Sort: "random"})
	require.NoError(t, err)
	require.Equal(t, domain.MaxDiscoverLimit, q.Limit)
	require.Zero(t, q.Offset)
	require.Equal(t, domain.SortNewest, q.Sort)

	_, _, err = svc.DiscoverStartSnaps(ctx, domain.DiscoverQuery{Category: "cooking"})
	require.True(t, domain.IsValidation(err))
}
