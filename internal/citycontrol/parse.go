package citycontrol

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StatusUpdate is the relevant content of an inbound
// ActualiseerZaakstatus_Lk01 message.
type StatusUpdate struct {
	CaseID      string
	Result      string
	Reason      string
	CompletedAt string
	Reference   string
}

type inboundEnvelope struct {
	XMLName xml.Name    `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    inboundBody `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

type inboundBody struct {
	Bericht inboundZakLk01 `xml:"http://www.egem.nl/StUF/sector/zkn/0310 zakLk01"`
}

type inboundZakLk01 struct {
	Stuurgegevens inboundStuurgegevens `xml:"http://www.egem.nl/StUF/sector/zkn/0310 stuurgegevens"`
	Object        inboundObject        `xml:"http://www.egem.nl/StUF/sector/zkn/0310 object"`
}

type inboundStuurgegevens struct {
	Referentienummer string `xml:"http://www.egem.nl/StUF/StUF0301 referentienummer"`
}

type inboundObject struct {
	Identificatie string           `xml:"http://www.egem.nl/StUF/sector/zkn/0310 identificatie"`
	Einddatum     string           `xml:"http://www.egem.nl/StUF/sector/zkn/0310 einddatum"`
	Heeft         inboundHeeft     `xml:"http://www.egem.nl/StUF/sector/zkn/0310 heeft"`
	Resultaat     inboundResultaat `xml:"http://www.egem.nl/StUF/sector/zkn/0310 resultaat"`
}

type inboundHeeft struct {
	DatumStatusGezet string `xml:"http://www.egem.nl/StUF/sector/zkn/0310 datumStatusGezet"`
}

type inboundResultaat struct {
	Omschrijving string `xml:"http://www.egem.nl/StUF/sector/zkn/0310 omschrijving"`
	Toelichting  string `xml:"http://www.egem.nl/StUF/sector/zkn/0310 toelichting"`
}

// ParseStatusUpdate extracts the case identifier, result and completion
// date from an inbound status-update message.
func ParseStatusUpdate(body []byte) (*StatusUpdate, error) {
	var env inboundEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Reason: "inbound message is not well-formed XML: " + err.Error()}
	}

	object := env.Body.Bericht.Object
	completedAt := object.Heeft.DatumStatusGezet
	if completedAt == "" {
		completedAt = object.Einddatum
	}
	return &StatusUpdate{
		CaseID:      strings.TrimSpace(object.Identificatie),
		Result:      strings.TrimSpace(object.Resultaat.Omschrijving),
		Reason:      strings.TrimSpace(object.Resultaat.Toelichting),
		CompletedAt: completedAt,
		Reference:   strings.TrimSpace(env.Body.Bericht.Stuurgegevens.Referentienummer),
	}, nil
}

var (
	caseIDPlain     = regexp.MustCompile(`^\s*SIG-([1-9]\d*)\s*$`)
	caseIDSequenced = regexp.MustCompile(`^\s*SIG-([1-9]\d*)\.(\d{2})\s*$`)
)

// ParseCaseID splits an external case identifier into signal id and
// sequence number. Identifiers without a sequence suffix (an older
// convention CityControl still uses occasionally) return sequence 0.
func ParseCaseID(caseID string) (int64, int, error) {
	if m := caseIDPlain.FindStringSubmatch(caseID); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid case identifier %q", caseID)
		}
		return id, 0, nil
	}
	if m := caseIDSequenced.FindStringSubmatch(caseID); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid case identifier %q", caseID)
		}
		sequence, err := strconv.Atoi(m[2])
		if err != nil || sequence == 0 {
			return 0, 0, fmt.Errorf("invalid sequence number in case identifier %q", caseID)
		}
		return id, sequence, nil
	}
	return 0, 0, fmt.Errorf("invalid case identifier %q", caseID)
}
