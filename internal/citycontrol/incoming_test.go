package citycontrol

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/workflow"
)

func callbackActor() domain.Actor {
	return domain.Actor{
		Email:        "citycontrol@example.org",
		Capabilities: []domain.Capability{domain.CapabilityCityControlCallback},
	}
}

func newIncomingFixture(statuses *fakeStatusRepo, signals ...*domain.Signal) (*IncomingBridge, *fakeRoundTripRepo) {
	roundtrips := newFakeRoundTripRepo()
	bridge := NewIncomingBridge(newBridgeEngine(statuses), newFakeSignalRepo(signals...), roundtrips, zap.NewNop())
	bridge.now = func() time.Time { return testTime }
	return bridge, roundtrips
}

func TestHandleInboundCompletesSentSignal(t *testing.T) {
	statuses := newFakeStatusRepo()
	signal := signalInState(statuses, 42, domain.StateSent, 0)
	bridge, _ := newIncomingFixture(statuses, signal)

	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-42.01", "Resolved", "Noise source removed"), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "<StUF:berichtcode>Bv03</StUF:berichtcode>")
	assert.Contains(t, string(body), "<StUF:crossRefnummer>msg-ref-9</StUF:crossRefnummer>")

	history, err := statuses.ListBySignal(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, history, 2)
	final := history[len(history)-1]
	assert.Equal(t, domain.StateDoneExternal, final.State)
	assert.Equal(t, "Case closed by CityControl. Result: Resolved. Reason: Noise source removed", final.Text)
	require.NotNil(t, final.CreatedBy)
	assert.Equal(t, "citycontrol@example.org", *final.CreatedBy)
}

func TestHandleInboundFillsMissingResultAndReason(t *testing.T) {
	statuses := newFakeStatusRepo()
	signal := signalInState(statuses, 42, domain.StateSent, 0)
	bridge, _ := newIncomingFixture(statuses, signal)

	_, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-42.01", "", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	history, err := statuses.ListBySignal(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t,
		"Case closed by CityControl. Result: No result provided by CityControl. Reason: No reason provided by CityControl",
		history[1].Text)
}

func TestHandleInboundReplayIsIdempotent(t *testing.T) {
	statuses := newFakeStatusRepo()
	signal := signalInState(statuses, 42, domain.StateDoneExternal, 0)
	bridge, _ := newIncomingFixture(statuses, signal)

	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-42.01", "Resolved", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "<StUF:berichtcode>Bv03</StUF:berichtcode>")

	history, err := statuses.ListBySignal(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHandleInboundRejectsActorWithoutCallbackCapability(t *testing.T) {
	statuses := newFakeStatusRepo()
	signal := signalInState(statuses, 42, domain.StateSent, 0)
	bridge, _ := newIncomingFixture(statuses, signal)

	actor := domain.Actor{Email: "agent@example.org", Capabilities: []domain.Capability{domain.CapabilityManageSignals}}
	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-42.01", "Resolved", ""), actor)

	assert.ErrorIs(t, err, workflow.ErrPermissionDenied)
	assert.Nil(t, body)
	assert.Zero(t, status)
}

func TestHandleInboundRejectsMissingSOAPAction(t *testing.T) {
	bridge, _ := newIncomingFixture(newFakeStatusRepo())

	body, status, err := bridge.HandleInbound(context.Background(), "",
		inboundStatusUpdate("SIG-42.01", "", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "<StUF:berichtcode>Fo03</StUF:berichtcode>")
	assert.Contains(t, string(body), "SOAPAction header not set")
}

func TestHandleInboundRejectsUnsupportedSOAPAction(t *testing.T) {
	bridge, _ := newIncomingFixture(newFakeStatusRepo())

	body, status, err := bridge.HandleInbound(context.Background(), `"http://example.org/unknownAction"`,
		inboundStatusUpdate("SIG-42.01", "", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "Fo03")
	assert.Contains(t, string(body), "is not supported")
}

func TestHandleInboundRejectsUnknownSignal(t *testing.T) {
	bridge, _ := newIncomingFixture(newFakeStatusRepo())

	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-7.01", "Resolved", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "Fo03")
	assert.Contains(t, string(body), "signal for case SIG-7.01 not found")
}

func TestHandleInboundRejectsMalformedCaseID(t *testing.T) {
	bridge, _ := newIncomingFixture(newFakeStatusRepo())

	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("TCK-42.01", "Resolved", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "Fo03")
}

func TestHandleInboundOnNotSentSignalBumpsLedger(t *testing.T) {
	statuses := newFakeStatusRepo()
	signal := signalInState(statuses, 42, domain.StateInProgress, 0)
	bridge, roundtrips := newIncomingFixture(statuses, signal)

	body, status, err := bridge.HandleInbound(context.Background(), SOAPActionUpdateStatus,
		inboundStatusUpdate("SIG-42.03", "Resolved", ""), callbackActor())

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "signal for case SIG-42.03 was not in a sent state")

	// The external side proved it issued sequence 3, so a later dispatch
	// must start at 4.
	count, err := roundtrips.CountBySignal(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	history, err := statuses.ListBySignal(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
