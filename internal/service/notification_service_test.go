package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidtasks/internal/engine"
	"kidtasks/internal/models"
)

type fakeSES struct {
	mu   sync.Mutex
	sent []*sesv2.SendEmailInput
	fail error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.sent = append(f.sent, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeKids map[string]*models.Kid

func (f fakeKids) GetKidByID(_ context.Context, id string) (*models.Kid, error) {
	return f[id], nil
}

func newTestNotifier(ses *fakeSES) *NotificationService {
	cfg := NotificationConfig{FromEmail: "board@example.com", FromName: "Kid Tasks", ParentEmail: "parent@example.com"}
	kids := fakeKids{"kid1": {ID: "kid1", Name: "Alice"}}
	return newNotificationService(ses, cfg, kids, nil)
}

func TestIsMilestone(t *testing.T) {
	for _, n := range Milestones {
		assert.True(t, IsMilestone(n), n)
	}
	for _, n := range []int{0, 1, 2, 4, 364} {
		assert.False(t, IsMilestone(n), n)
	}
}

func TestNotificationSendsOnMilestone(t *testing.T) {
	ses := &fakeSES{}
	svc := newTestNotifier(ses)
	require.True(t, svc.IsEnabled())

	state := models.StreakState{KidID: "kid1", StreakCount: 7, LastPerfectDate: "2024-06-07", LongestStreak: 7}
	svc.StreakUpdated(context.Background(), state, engine.OutcomeIncrement)
	svc.Wait()

	require.Len(t, ses.sent, 1)
	in := ses.sent[0]
	assert.Equal(t, "Kid Tasks <board@example.com>", *in.FromEmailAddress)
	assert.Equal(t, []string{"parent@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Alice reached a 7 day streak!", *in.Content.Simple.Subject.Data)
	assert.Contains(t, *in.Content.Simple.Body.Text.Data, "2024-06-07")
}

func TestNotificationSkips(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		outcome engine.Outcome
	}{
		{name: "not a milestone", count: 4, outcome: engine.OutcomeIncrement},
		{name: "already counted today", count: 7, outcome: engine.OutcomeUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ses := &fakeSES{}
			svc := newTestNotifier(ses)
			svc.StreakUpdated(context.Background(), models.StreakState{KidID: "kid1", StreakCount: tt.count, LongestStreak: tt.count}, tt.outcome)
			svc.Wait()
			assert.Empty(t, ses.sent)
		})
	}
}

func TestNotificationSurvivesCanceledRequest(t *testing.T) {
	ses := &fakeSES{}
	svc := newTestNotifier(ses)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StreakUpdated(ctx, models.StreakState{KidID: "kid1", StreakCount: 3, LongestStreak: 3}, engine.OutcomeIncrement)
	cancel()
	svc.Wait()

	assert.Len(t, ses.sent, 1)
}

func TestNotificationSendFailureIsLoggedOnly(t *testing.T) {
	ses := &fakeSES{fail: errors.New("throttled")}
	svc := newTestNotifier(ses)

	svc.StreakUpdated(context.Background(), models.StreakState{KidID: "kid1", StreakCount: 3, LongestStreak: 3}, engine.OutcomeRestart)
	svc.Wait()
	assert.Empty(t, ses.sent)
}

func TestNotificationDisabledWithoutAddresses(t *testing.T) {
	svc, err := NewNotificationService(context.Background(), NotificationConfig{}, nil, nil)
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())

	svc.StreakUpdated(context.Background(), models.StreakState{KidID: "kid1", StreakCount: 3, LongestStreak: 3}, engine.OutcomeIncrement)
	svc.Wait()
}
