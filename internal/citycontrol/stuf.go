package citycontrol

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// StUF namespaces and SOAP actions for the CityControl coupling. The
// double quotes around the actions are required by the SOAP spec.
const (
	NamespaceSoap = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceZKN  = "http://www.egem.nl/StUF/sector/zkn/0310"
	NamespaceStUF = "http://www.egem.nl/StUF/StUF0301"
	NamespaceBG   = "http://www.egem.nl/StUF/sector/bg/0310"
	NamespaceMime = "http://www.w3.org/2005/05/xmlmime"

	SOAPActionCreateCase     = `"http://www.egem.nl/StUF/sector/zkn/0310/CreeerZaak_Lk01"`
	SOAPActionAttachDocument = `"http://www.egem.nl/StUF/sector/zkn/0310/VoegZaakdocumentToe_Lk01"`
	SOAPActionUpdateStatus   = `"http://www.egem.nl/StUF/sector/zkn/0310/actualiseerZaakstatus_Lk01"`

	berichtcodeAck   = "Bv03"
	berichtcodeFault = "Fo03"
)

// Sender/receiver codes as agreed with Sigmax for the CityControl coupling.
const (
	senderOrganisation   = "GEM"
	senderApplication    = "SIG"
	receiverOrganisation = "SMX"
	receiverApplication  = "CTC"
)

func stufTimestamp(t time.Time) string { return t.Format("20060102150405") }
func stufDate(t time.Time) string      { return t.Format("20060102") }

// stuurgegevens is the StUF routing header present in every message.
type stuurgegevens struct {
	Berichtcode      string       `xml:"StUF:berichtcode"`
	Zender           systeemParty `xml:"StUF:zender"`
	Ontvanger        systeemParty `xml:"StUF:ontvanger"`
	Referentienummer string       `xml:"StUF:referentienummer"`
	TijdstipBericht  string       `xml:"StUF:tijdstipBericht"`
	Entiteittype     string       `xml:"StUF:entiteittype,omitempty"`
	CrossRefnummer   string       `xml:"StUF:crossRefnummer,omitempty"`
}

type systeemParty struct {
	Organisatie string `xml:"StUF:organisatie"`
	Applicatie  string `xml:"StUF:applicatie"`
}

func newStuurgegevens(berichtcode, entiteittype string, now time.Time) stuurgegevens {
	return stuurgegevens{
		Berichtcode:      berichtcode,
		Zender:           systeemParty{Organisatie: senderOrganisation, Applicatie: senderApplication},
		Ontvanger:        systeemParty{Organisatie: receiverOrganisation, Applicatie: receiverApplication},
		Referentienummer: uuid.NewString(),
		TijdstipBericht:  stufTimestamp(now),
		Entiteittype:     entiteittype,
	}
}

// ackEnvelope is the Bv03 acknowledgement sent back to CityControl.
type ackEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XMLNS   string   `xml:"xmlns:soap,attr"`
	Body    ackBody  `xml:"soap:Body"`
}

type ackBody struct {
	Bericht ackBericht `xml:"StUF:Bv03Bericht"`
}

type ackBericht struct {
	XMLNSStUF     string        `xml:"xmlns:StUF,attr"`
	Stuurgegevens stuurgegevens `xml:"StUF:stuurgegevens"`
}

// BuildAck renders a Bv03 acknowledgement referencing the inbound message.
func BuildAck(crossRefnummer string, now time.Time) []byte {
	header := newStuurgegevens(berichtcodeAck, "", now)
	header.CrossRefnummer = crossRefnummer
	env := ackEnvelope{
		XMLNS: NamespaceSoap,
		Body: ackBody{Bericht: ackBericht{
			XMLNSStUF:     NamespaceStUF,
			Stuurgegevens: header,
		}},
	}
	return marshalEnvelope(env)
}

// faultEnvelope is the Fo03 fault message.
type faultEnvelope struct {
	XMLName xml.Name  `xml:"soap:Envelope"`
	XMLNS   string    `xml:"xmlns:soap,attr"`
	Body    faultWrap `xml:"soap:Body"`
}

type faultWrap struct {
	Bericht faultBericht `xml:"StUF:Fo03Bericht"`
}

type faultBericht struct {
	XMLNSStUF     string        `xml:"xmlns:StUF,attr"`
	Stuurgegevens stuurgegevens `xml:"StUF:stuurgegevens"`
	Body          faultBody     `xml:"StUF:body"`
}

type faultBody struct {
	Code         string `xml:"StUF:code"`
	Plek         string `xml:"StUF:plek"`
	Omschrijving string `xml:"StUF:omschrijving"`
}

// BuildFault renders an Fo03 fault carrying an operator-readable message.
// Free text is escaped by construction, it can never break the envelope.
func BuildFault(errorMessage string, now time.Time) []byte {
	env := faultEnvelope{
		XMLNS: NamespaceSoap,
		Body: faultWrap{Bericht: faultBericht{
			XMLNSStUF:     NamespaceStUF,
			Stuurgegevens: newStuurgegevens(berichtcodeFault, "", now),
			Body: faultBody{
				Code:         "StUF058",
				Plek:         "server",
				Omschrijving: errorMessage,
			},
		}},
	}
	return marshalEnvelope(env)
}

func marshalEnvelope(env interface{}) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	// encoding of the fixed message shapes above cannot fail
	_ = enc.Encode(env)
	_ = enc.Flush()
	return buf.Bytes()
}

// ValidateAck checks that a synchronous response is a Bv03 acknowledgement:
// well-formed XML with exactly one stuurgegevens/berichtcode element in the
// StUF namespace whose text is Bv03. Anything else is a ProtocolError.
func ValidateAck(body []byte) error {
	codes, err := collectBerichtcodes(body)
	if err != nil {
		return &ProtocolError{Reason: "response is not well-formed XML: " + err.Error()}
	}
	if len(codes) != 1 {
		return &ProtocolError{Reason: "expected exactly one berichtcode element"}
	}
	if codes[0] != berichtcodeAck {
		return &ProtocolError{Reason: "received berichtcode " + codes[0] + " instead of Bv03"}
	}
	return nil
}

// collectBerichtcodes walks the document and returns the text of every
// StUF berichtcode element directly under a StUF stuurgegevens element.
func collectBerichtcodes(body []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))

	var (
		codes []string
		path  []xml.Name
	)
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			path = append(path, t.Name)
			if t.Name.Space == NamespaceStUF && t.Name.Local == "berichtcode" &&
				len(path) >= 2 &&
				path[len(path)-2].Space == NamespaceStUF &&
				path[len(path)-2].Local == "stuurgegevens" {
				var text string
				if err := decoder.DecodeElement(&text, &t); err != nil {
					return nil, err
				}
				codes = append(codes, text)
				path = path[:len(path)-1]
			}
		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}
	return codes, nil
}
