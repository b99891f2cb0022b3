package citycontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func TestBuildAckIsAcceptedByValidateAck(t *testing.T) {
	ack := BuildAck("ref-123", testTime)

	require.NoError(t, ValidateAck(ack))
	assert.Contains(t, string(ack), "<StUF:crossRefnummer>ref-123</StUF:crossRefnummer>")
	assert.Contains(t, string(ack), "<StUF:tijdstipBericht>20240315103000</StUF:tijdstipBericht>")
}

func TestBuildFaultEscapesFreeText(t *testing.T) {
	fault := BuildFault(`<poison>tastes nice</poison>`, testTime)

	body := string(fault)
	assert.NotContains(t, body, "<poison>")
	assert.Contains(t, body, "&lt;poison&gt;tastes nice&lt;/poison&gt;")
	assert.Contains(t, body, "<StUF:code>StUF058</StUF:code>")
	assert.Contains(t, body, "<StUF:plek>server</StUF:plek>")
}

func TestValidateAckRejectsFault(t *testing.T) {
	err := ValidateAck(BuildFault("it broke", testTime))

	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Contains(t, protocolErr.Reason, "Fo03")
}

func TestValidateAckRejectsGarbage(t *testing.T) {
	for _, body := range []string{
		`{"status": "ok"}`,
		`<unclosed`,
		``,
	} {
		err := ValidateAck([]byte(body))
		var protocolErr *ProtocolError
		assert.ErrorAs(t, err, &protocolErr, "body %q", body)
	}
}

func TestValidateAckRejectsMultipleBerichtcodes(t *testing.T) {
	body := `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <StUF:Bv03Bericht xmlns:StUF="http://www.egem.nl/StUF/StUF0301">
      <StUF:stuurgegevens>
        <StUF:berichtcode>Bv03</StUF:berichtcode>
        <StUF:berichtcode>Bv03</StUF:berichtcode>
      </StUF:stuurgegevens>
    </StUF:Bv03Bericht>
  </soap:Body>
</soap:Envelope>`

	err := ValidateAck([]byte(body))
	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Contains(t, protocolErr.Reason, "exactly one")
}

func TestValidateAckRequiresStufStuurgegevens(t *testing.T) {
	body := `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <other:Bericht xmlns:other="http://example.org/other" xmlns:StUF="http://www.egem.nl/StUF/StUF0301">
      <other:stuurgegevens>
        <StUF:berichtcode>Bv03</StUF:berichtcode>
      </other:stuurgegevens>
    </other:Bericht>
  </soap:Body>
</soap:Envelope>`

	err := ValidateAck([]byte(body))
	var protocolErr *ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Contains(t, protocolErr.Reason, "exactly one")
}

func TestValidateAckIgnoresBerichtcodeOutsideStuurgegevens(t *testing.T) {
	body := `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <StUF:Bv03Bericht xmlns:StUF="http://www.egem.nl/StUF/StUF0301">
      <StUF:berichtcode>Fo03</StUF:berichtcode>
      <StUF:stuurgegevens>
        <StUF:berichtcode>Bv03</StUF:berichtcode>
      </StUF:stuurgegevens>
    </StUF:Bv03Bericht>
  </soap:Body>
</soap:Envelope>`

	assert.NoError(t, ValidateAck([]byte(body)))
}
