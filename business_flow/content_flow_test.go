package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoad/screenfleet/app/dto"
	"github.com/innoad/screenfleet/fleet"
	"github.com/innoad/screenfleet/models"
)

func TestContentFlow_CreateContent(t *testing.T) {
	f := newFlowFixture(t, 100)

	resp, err := f.contentFlow.CreateContent(context.Background(), &dto.CreateContentRequest{
		OwnerID: 1,
		Name:    "Hero Banner",
		Type:    "image",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.ContentStatusDraft), resp.Status)

	content, ok := f.store.Content(resp.ID)
	require.True(t, ok)
	assert.Equal(t, 10, content.DurationSeconds)
}

func TestContentFlow_CreateContentRejectsBadType(t *testing.T) {
	f := newFlowFixture(t, 100)

	_, err := f.contentFlow.CreateContent(context.Background(), &dto.CreateContentRequest{
		OwnerID: 1,
		Name:    "Mystery",
		Type:    "hologram",
	}, nil)
	require.Error(t, err)
	assert.Empty(t, f.contentRepo.saved)
}

func TestContentFlow_ActivationRefreshesReferencingScreens(t *testing.T) {
	f := newFlowFixture(t, 100)
	screen := f.addScreen(1, 1, "lobby-east-01")
	content := f.addContent(10, 1, models.ContentStatusDraft, 3600)
	f.addCampaign(100, 1, models.CampaignStatusActive, []uint{screen.ID}, []uint{content.ID})

	// Draft content resolves to idle.
	_, _, err := f.resolver.Recompute(screen.ID, f.base)
	require.NoError(t, err)
	live, _ := f.store.Screen(screen.ID)
	assert.Nil(t, live.CurrentContentID)

	ch, cancel := f.bus.Subscribe(fleet.TopicScreen(screen.UUID))
	defer cancel()

	resp, err := f.contentFlow.UpdateContentStatus(context.Background(), &dto.UpdateContentStatusRequest{
		UUID: content.UUID.String(), OwnerID: 1, Status: "active",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "active", resp.Status)

	ev := <-ch
	assert.Equal(t, fleet.EventContentAssigned, ev.Type)
	require.NotNil(t, ev.ContentID)
	assert.Equal(t, content.ID, *ev.ContentID)

	live, _ = f.store.Screen(screen.ID)
	require.NotNil(t, live.CurrentContentID)
	assert.Equal(t, content.ID, *live.CurrentContentID)

	require.Len(t, f.contentRepo.statusSets, 1)
	assert.Equal(t, statusSet{ID: content.ID, Status: models.ContentStatusActive}, f.contentRepo.statusSets[0])
}

func TestContentFlow_ArchivalDropsAssignment(t *testing.T) {
	f := newFlowFixture(t, 100)
	screen := f.addScreen(1, 1, "lobby-east-01")
	content := f.addContent(10, 1, models.ContentStatusActive, 3600)
	f.addCampaign(100, 1, models.CampaignStatusActive, []uint{screen.ID}, []uint{content.ID})

	_, _, err := f.resolver.Recompute(screen.ID, f.base)
	require.NoError(t, err)

	_, err = f.contentFlow.UpdateContentStatus(context.Background(), &dto.UpdateContentStatusRequest{
		UUID: content.UUID.String(), OwnerID: 1, Status: "archived",
	}, nil)
	require.NoError(t, err)

	live, _ := f.store.Screen(screen.ID)
	assert.Nil(t, live.CurrentContentID)
}

func TestContentFlow_UnchangedStatusIsNoop(t *testing.T) {
	f := newFlowFixture(t, 100)
	content := f.addContent(10, 1, models.ContentStatusDraft, 30)

	resp, err := f.contentFlow.UpdateContentStatus(context.Background(), &dto.UpdateContentStatusRequest{
		UUID: content.UUID.String(), OwnerID: 1, Status: "draft",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", resp.Status)
	assert.Empty(t, f.contentRepo.statusSets)
}

func TestContentFlow_UpdateStatusEnforcesOwnership(t *testing.T) {
	f := newFlowFixture(t, 100)
	content := f.addContent(10, 1, models.ContentStatusDraft, 30)

	_, err := f.contentFlow.UpdateContentStatus(context.Background(), &dto.UpdateContentStatusRequest{
		UUID: content.UUID.String(), OwnerID: 2, Status: "active",
	}, nil)
	require.Error(t, err)
}

func TestContentFlow_GetContent(t *testing.T) {
	f := newFlowFixture(t, 100)
	content := f.addContent(10, 1, models.ContentStatusActive, 45)

	got, err := f.contentFlow.GetContent(context.Background(), &dto.GetContentRequest{
		UUID: content.UUID.String(), OwnerID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, got.DurationSeconds)

	_, err = f.contentFlow.GetContent(context.Background(), &dto.GetContentRequest{
		UUID: content.UUID.String(), OwnerID: 2,
	})
	require.Error(t, err)
	assert.True(t, IsContentAccessDenied(err))
}
