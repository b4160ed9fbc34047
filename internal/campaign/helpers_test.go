package campaign

import (
	"encoding/json"
	"testing"

	"github.com/ppiankov/malcamp/internal/model"
	"github.com/stretchr/testify/require"
)

// recorder is an in-memory Builder.
type recorder struct {
	events []model.CampaignEvent
	listed []string
}

func (r *recorder) AddEvent(e model.CampaignEvent) { r.events = append(r.events, e) }
func (r *recorder) ListEvent(name string)          { r.listed = append(r.listed, name) }
func (r *recorder) EventCount() int                { return len(r.events) }

// standard returns the StandardEventCoordinator of event i.
func (r *recorder) standard(t *testing.T, i int) model.StandardEventCoordinator {
	t.Helper()
	require.Greater(t, len(r.events), i)
	sc, ok := r.events[i].EventCoordinatorConfig.(model.StandardEventCoordinator)
	require.True(t, ok, "event %d coordinator is %T", i, r.events[i].EventCoordinatorConfig)
	return sc
}

// listener returns the node-level listener of event i.
func (r *recorder) listener(t *testing.T, i int) model.NodeLevelHealthTriggeredIV {
	t.Helper()
	iv, ok := r.standard(t, i).InterventionConfig.(model.NodeLevelHealthTriggeredIV)
	require.True(t, ok, "event %d intervention is %T", i, r.standard(t, i).InterventionConfig)
	return iv
}

func (r *recorder) isListed(name string) bool {
	for _, n := range r.listed {
		if n == name {
			return true
		}
	}
	return false
}

// asMap round-trips v through JSON.
func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func classes(list []model.Intervention) []string {
	out := make([]string, len(list))
	for i, iv := range list {
		out[i] = iv.Class()
	}
	return out
}
