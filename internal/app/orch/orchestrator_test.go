package orch

import (
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/core/coretest"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const room domain.ChannelID = "Brave-Otter"

type kicker struct {
	mu     sync.Mutex
	kicked []domain.ConnID
}

func (k *kicker) Disconnect(conn domain.ConnID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicked = append(k.kicked, conn)
}

func newOrch(t *testing.T, policy app.Policy) (*Orchestrator, *coretest.Notifier) {
	t.Helper()
	tbl := core.NewChannelTable()
	n := coretest.NewNotifier(tbl)
	return New(tbl, n, policy, metrics.NewRelayMetrics(prometheus.NewRegistry())), n
}

func boolPtr(b bool) *bool { return &b }

func TestExampleScenario(t *testing.T) {
	o, n := newOrch(t, nil)

	require.NoError(t, o.JoinRoom(room, "A", true))
	require.True(t, o.RequestBroadcasterRole(room, "A"))

	require.NoError(t, o.JoinRoom(room, "B", false))
	assert.Equal(t, []domain.Event{domain.RoomStatus(room, true)}, n.For("B"))

	// C is not a member yet; denial leaves no trace but the return value.
	n.Reset()
	assert.False(t, o.RequestBroadcasterRole(room, "C"))
	assert.Empty(t, n.All())
	require.NoError(t, o.JoinRoom(room, "C", false))

	n.Reset()
	res := o.SendAudioChunk(room, "A", []byte{0x01, 0x02})
	require.Equal(t, app.RelayDelivered, res.Kind)
	for _, conn := range []domain.ConnID{"B", "C"} {
		evs := n.For(conn)
		require.Len(t, evs, 1)
		assert.Equal(t, domain.EventReceiveAudioChunk, evs[0].Name)
		assert.Equal(t, []byte{0x01, 0x02}, evs[0].Frame)
	}
	assert.Empty(t, n.For("A"))

	n.Reset()
	o.OnDisconnected("A")
	for _, conn := range []domain.ConnID{"B", "C"} {
		assert.Equal(t, []domain.Event{
			domain.BroadcasterLeft(room, "A"),
			domain.WaitingForBroadcaster(room),
		}, n.For(conn))
	}
	assert.Empty(t, n.For("A"))
	_, ok := o.Arbiter.CurrentBroadcaster(room)
	assert.False(t, ok)
}

func TestJoinRoom_ListenerOnSilentChannelWaits(t *testing.T) {
	o, n := newOrch(t, nil)

	require.NoError(t, o.JoinRoom(room, "B", false))

	assert.Equal(t, []domain.Event{
		{Name: domain.EventRoomStatus, Channel: room, HasBroadcaster: boolPtr(false)},
		domain.WaitingForBroadcaster(room),
	}, n.For("B"))
}

func TestJoinRoom_WouldBeBroadcasterIsNotTold(t *testing.T) {
	o, n := newOrch(t, nil)

	require.NoError(t, o.JoinRoom(room, "A", true))

	assert.Equal(t, []domain.EventName{domain.EventRoomStatus}, n.NamesFor("A"))
}

func TestJoinRoom_OnlyCallerNotified(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "A", false))
	n.Reset()

	require.NoError(t, o.JoinRoom(room, "B", false))

	assert.Empty(t, n.For("A"))
}

func TestRequestBroadcasterRole_NotifiesMembers(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "B", false))
	require.NoError(t, o.JoinRoom(room, "A", true))
	n.Reset()

	require.True(t, o.RequestBroadcasterRole(room, "A"))

	assert.Equal(t, []domain.Event{
		domain.BroadcasterJoined(room, "A"),
		domain.BroadcasterAvailable(room),
	}, n.For("B"))
	assert.Equal(t, []domain.Event{domain.BroadcasterJoined(room, "A")}, n.For("A"))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.RoleRequests.WithLabelValues("granted")))
}

func TestRequestBroadcasterRole_ConcurrentSingleWinner(t *testing.T) {
	o, _ := newOrch(t, nil)

	var granted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range 24 {
		wg.Add(1)
		go func(conn domain.ConnID) {
			defer wg.Done()
			<-start
			_ = o.JoinRoom(room, conn, true)
			if o.RequestBroadcasterRole(room, conn) {
				granted.Add(1)
			}
		}(domain.ConnID(fmt.Sprintf("c%d", i)))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
	assert.Equal(t, 23.0, testutil.ToFloat64(o.Metrics.RoleRequests.WithLabelValues("denied")))
}

func TestReleaseBroadcasterRole(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "A", true))
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	require.True(t, o.ReleaseBroadcasterRole(room, "A"))

	assert.Equal(t, []domain.Event{
		domain.BroadcasterLeft(room, "A"),
		domain.WaitingForBroadcaster(room),
	}, n.For("B"))
	assert.Equal(t, []domain.Event{domain.BroadcasterLeft(room, "A")}, n.For("A"))
}

func TestReleaseBroadcasterRole_NonHolderIsNoop(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "A", true))
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	assert.False(t, o.ReleaseBroadcasterRole(room, "B"))
	assert.False(t, o.ReleaseBroadcasterRole("elsewhere", "A"))

	assert.Empty(t, n.All())
	assert.Zero(t, n.GroupSends())
	holder, ok := o.Arbiter.CurrentBroadcaster(room)
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("A"), holder)
}

func TestSendAudioChunk_UnauthorizedOnlyCallerHears(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "A", true))
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	res := o.SendAudioChunk(room, "B", []byte{1})

	assert.Equal(t, app.RelayUnauthorized, res.Kind)
	assert.Zero(t, n.GroupSends())
	assert.Equal(t, []domain.Event{domain.BroadcastError(domain.MsgUnauthorized)}, n.For("B"))
	assert.Empty(t, n.For("A"))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.FramesRejected.WithLabelValues("unauthorized")))
}

func TestSendAudioChunk_NoBroadcaster(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	res := o.SendAudioChunk(room, "B", []byte{1})

	assert.Equal(t, app.RelayNoBroadcaster, res.Kind)
	assert.Equal(t, []domain.Event{domain.BroadcastError(domain.MsgNoBroadcaster)}, n.For("B"))
}

func TestSendAudioChunk_EmptyFrameIsSilent(t *testing.T) {
	o, n := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "A", true))
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	res := o.SendAudioChunk(room, "A", nil)

	assert.Equal(t, app.RelayEmpty, res.Kind)
	assert.Zero(t, n.GroupSends())
	assert.Empty(t, n.All())
	assert.Zero(t, testutil.ToFloat64(o.Metrics.FramesRelayed))
}

func TestSendAudioChunk_Metrics(t *testing.T) {
	o, _ := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))

	o.SendAudioChunk(room, "A", make([]byte, 320))
	o.SendAudioChunk(room, "A", make([]byte, 160))

	assert.Equal(t, 2.0, testutil.ToFloat64(o.Metrics.FramesRelayed))
	assert.Equal(t, 480.0, testutil.ToFloat64(o.Metrics.BytesRelayed))
}

func TestSendAudioChunkBase64_SameOutcomeAsBinary(t *testing.T) {
	payload := []byte{0x00, 0x7f, 0x80, 0xff}
	for _, sender := range []domain.ConnID{"A", "B"} {
		bin, binN := newOrch(t, nil)
		txt, txtN := newOrch(t, nil)
		for _, o := range []*Orchestrator{bin, txt} {
			require.True(t, o.RequestBroadcasterRole(room, "A"))
			require.NoError(t, o.JoinRoom(room, "B", false))
			require.NoError(t, o.JoinRoom(room, "C", false))
		}
		binN.Reset()
		txtN.Reset()

		want := bin.SendAudioChunk(room, sender, payload)
		got, err := txt.SendAudioChunkBase64(room, sender, base64.StdEncoding.EncodeToString(payload))
		require.NoError(t, err)

		assert.Equal(t, want, got)
		assert.Equal(t, binN.All(), txtN.All())
	}
}

func TestSendAudioChunkBase64_Malformed(t *testing.T) {
	o, n := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	_, err := o.SendAudioChunkBase64(room, "A", "%%%")

	require.ErrorIs(t, err, app.ErrInvalidEncoding)
	assert.Zero(t, n.GroupSends())
	evs := n.For("A")
	require.Len(t, evs, 1)
	assert.Equal(t, domain.EventBroadcastError, evs[0].Name)
	assert.Contains(t, evs[0].Message, "invalid audio encoding")
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.FramesRejected.WithLabelValues("invalid_encoding")))
}

func TestOnDisconnected_ListenerLeavesQuietly(t *testing.T) {
	o, n := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.Reset()

	o.OnDisconnected("B")

	assert.Empty(t, n.All())
	assert.Equal(t, []domain.ConnID{"A"}, o.Registry.MembersOf(room))
	assert.True(t, o.Arbiter.IsAuthorized(room, "A"))
}

func TestOnDisconnected_CleansEveryChannel(t *testing.T) {
	o, n := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole("one", "A"))
	require.True(t, o.RequestBroadcasterRole("two", "A"))
	require.NoError(t, o.JoinRoom("one", "B", false))
	require.NoError(t, o.JoinRoom("three", "A", false))
	n.Reset()

	o.OnDisconnected("A")

	assert.Equal(t, []domain.EventName{domain.EventBroadcasterLeft, domain.EventWaitingForBroadcaster}, n.NamesFor("B"))
	assert.Empty(t, o.Registry.ChannelsOf("A"))
	_, ok := o.ChannelStatus("two")
	assert.False(t, ok, "channel with no members and no broadcaster is gone")
	_, ok = o.ChannelStatus("three")
	assert.False(t, ok)
	status, ok := o.ChannelStatus("one")
	require.True(t, ok)
	assert.False(t, status.HasBroadcaster())
	assert.Equal(t, 1, status.MemberCount)
}

func TestOnDisconnected_BroadcasterThatLeftGroup(t *testing.T) {
	o, n := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	o.LeaveRoom(room, "A")
	assert.True(t, o.Arbiter.IsAuthorized(room, "A"), "leaving does not release the role")
	n.Reset()

	o.OnDisconnected("A")

	assert.Equal(t, []domain.EventName{domain.EventBroadcasterLeft, domain.EventWaitingForBroadcaster}, n.NamesFor("B"))
}

func TestLeaveRoom(t *testing.T) {
	o, _ := newOrch(t, nil)
	require.NoError(t, o.JoinRoom(room, "B", false))

	o.LeaveRoom(room, "B")

	_, ok := o.ChannelStatus(room)
	assert.False(t, ok)
	assert.Empty(t, o.Channels())
}

func TestGetDebugInfo(t *testing.T) {
	o, _ := newOrch(t, nil)
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	require.NoError(t, o.JoinRoom("quiet", "C", false))

	info := o.GetDebugInfo()

	assert.Equal(t, map[domain.ChannelID]domain.ConnID{room: "A"}, info.Broadcasters)
	assert.Equal(t, map[domain.ChannelID]int{room: 2, "quiet": 1}, info.MemberCounts)
}

func TestBackpressure_DropPolicyKeepsListener(t *testing.T) {
	o, n := newOrch(t, app.DropPolicy{})
	k := &kicker{}
	o.Kicker = k
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	require.NoError(t, o.JoinRoom(room, "C", false))
	n.MarkSlow("B")

	res := o.SendAudioChunk(room, "A", []byte{1})

	assert.Equal(t, 1, res.Publish.SendTo)
	assert.Empty(t, k.kicked)
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.ListenerDrops))
}

func TestBackpressure_KickPolicyDisconnects(t *testing.T) {
	o, n := newOrch(t, app.KickPolicy{})
	k := &kicker{}
	o.Kicker = k
	require.True(t, o.RequestBroadcasterRole(room, "A"))
	require.NoError(t, o.JoinRoom(room, "B", false))
	n.MarkSlow("B")

	o.SendAudioChunk(room, "A", []byte{1})

	assert.Equal(t, []domain.ConnID{"B"}, k.kicked)
}
