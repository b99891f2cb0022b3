package citycontrol

import (
	"encoding/base64"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/signal-service/internal/domain"
)

// Borough codes for CityControl are custom and do not match the official
// municipal ones.
var boroughCodes = map[string]string{
	"Centrum":    "SDC",
	"Noord":      "SDN",
	"Nieuw-West": "SDNW",
	"Oost":       "SDO",
	"West":       "SDW",
	"Zuid":       "SDZ",
	"Zuidoost":   "SDZO",
	"Westpoort":  "SDWP",
}

// Planned handling terms in days, by priority.
var handlingDays = map[domain.SignalPriority]int{
	domain.PriorityHigh:   1,
	domain.PriorityNormal: 3,
}

type caseEnvelope struct {
	XMLName   xml.Name `xml:"soap:Envelope"`
	XMLNSSoap string   `xml:"xmlns:soap,attr"`
	Body      caseBody `xml:"soap:Body"`
}

type caseBody struct {
	Bericht zakLk01 `xml:"ZKN:zakLk01"`
}

type zakLk01 struct {
	XMLNSZKN      string            `xml:"xmlns:ZKN,attr"`
	XMLNSStUF     string            `xml:"xmlns:StUF,attr"`
	XMLNSBG       string            `xml:"xmlns:BG,attr"`
	Stuurgegevens stuurgegevens     `xml:"ZKN:stuurgegevens"`
	Parameters    mutatieParameters `xml:"ZKN:parameters"`
	Object        zaakObject        `xml:"ZKN:object"`
}

type mutatieParameters struct {
	Mutatiesoort      string `xml:"StUF:mutatiesoort"`
	IndicatorOvername string `xml:"StUF:indicatorOvername"`
}

type zaakObject struct {
	Entiteittype       string             `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort   string             `xml:"StUF:verwerkingssoort,attr"`
	Identificatie      string             `xml:"ZKN:identificatie"`
	Omschrijving       string             `xml:"ZKN:omschrijving"`
	Toelichting        string             `xml:"ZKN:toelichting,omitempty"`
	Startdatum         string             `xml:"ZKN:startdatum"`
	Registratiedatum   string             `xml:"ZKN:registratiedatum"`
	EinddatumGepland   string             `xml:"ZKN:einddatumGepland"`
	Archiefnominatie   string             `xml:"ZKN:archiefnominatie"`
	Zaakniveau         string             `xml:"ZKN:zaakniveau"`
	DeelzakenIndicatie string             `xml:"ZKN:deelzakenIndicatie"`
	ExtraElementen     extraElementen     `xml:"StUF:extraElementen"`
	IsVan              isVan              `xml:"ZKN:isVan"`
	HeeftBetrekkingOp  *heeftBetrekkingOp `xml:"ZKN:heeftBetrekkingOp,omitempty"`
}

type extraElementen struct {
	Elementen []extraElement `xml:"StUF:extraElement"`
}

type extraElement struct {
	Naam  string `xml:"naam,attr"`
	Value string `xml:",chardata"`
}

type isVan struct {
	Entiteittype     string      `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string      `xml:"StUF:verwerkingssoort,attr"`
	Gerelateerde     zaakTypeRef `xml:"ZKN:gerelateerde"`
}

type zaakTypeRef struct {
	Entiteittype     string `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string `xml:"StUF:verwerkingssoort,attr"`
	Omschrijving     string `xml:"ZKN:omschrijving"`
	Code             string `xml:"ZKN:code"`
}

type heeftBetrekkingOp struct {
	Entiteittype     string       `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string       `xml:"StUF:verwerkingssoort,attr"`
	Gerelateerde     adresWrapper `xml:"ZKN:gerelateerde"`
}

type adresWrapper struct {
	Adres zaakAdres `xml:"ZKN:adres"`
}

type zaakAdres struct {
	Entiteittype     string `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string `xml:"StUF:verwerkingssoort,attr"`
	WoonplaatsNaam   string `xml:"BG:wpl.woonplaatsNaam"`
	OpenbareRuimte   string `xml:"BG:gor.openbareRuimteNaam"`
	Huisnummer       string `xml:"BG:huisnummer"`
	Postcode         string `xml:"BG:postcode,omitempty"`
}

// BuildCreateCase renders a CreeerZaak_Lk01 message for the given dispatch
// sequence number. All free-text fields pass through the XML encoder and
// are escaped by construction.
func BuildCreateCase(signal *domain.Signal, sequence int, now time.Time) []byte {
	object := zaakObject{
		Entiteittype:       "ZAK",
		Verwerkingssoort:   "T",
		Identificatie:      domain.CaseID(signal.ID, sequence),
		Omschrijving:       caseDescription(signal, sequence),
		Toelichting:        signal.Text,
		Startdatum:         stufDate(signal.CreatedAt),
		Registratiedatum:   stufDate(signal.CreatedAt),
		EinddatumGepland:   stufDate(incidentEnd(signal)),
		Archiefnominatie:   "N",
		Zaakniveau:         "1",
		DeelzakenIndicatie: "N",
		ExtraElementen: extraElementen{Elementen: []extraElement{
			{Naam: "Ycoordinaat", Value: strconv.FormatFloat(signal.Location.Lat, 'f', -1, 64)},
			{Naam: "Xcoordinaat", Value: strconv.FormatFloat(signal.Location.Lng, 'f', -1, 64)},
		}},
		IsVan: isVan{
			Entiteittype:     "ZAKZKT",
			Verwerkingssoort: "T",
			Gerelateerde: zaakTypeRef{
				Entiteittype:     "ZKT",
				Verwerkingssoort: "T",
				Omschrijving:     "Uitvoeren controle",
				Code:             "2",
			},
		},
	}

	// CityControl accepts signals without an address as long as
	// coordinates are present.
	if addressComplete(signal.Location) {
		object.HeeftBetrekkingOp = &heeftBetrekkingOp{
			Entiteittype:     "ZAKOBJ",
			Verwerkingssoort: "T",
			Gerelateerde: adresWrapper{Adres: zaakAdres{
				Entiteittype:     "AOA",
				Verwerkingssoort: "T",
				WoonplaatsNaam:   signal.Location.City,
				OpenbareRuimte:   signal.Location.Street,
				Huisnummer:       signal.Location.HouseNumber,
				Postcode:         signal.Location.PostalCode,
			}},
		}
	}

	env := caseEnvelope{
		XMLNSSoap: NamespaceSoap,
		Body: caseBody{Bericht: zakLk01{
			XMLNSZKN:      NamespaceZKN,
			XMLNSStUF:     NamespaceStUF,
			XMLNSBG:       NamespaceBG,
			Stuurgegevens: newStuurgegevens("Lk01", "ZAK", now),
			Parameters:    mutatieParameters{Mutatiesoort: "T", IndicatorOvername: "V"},
			Object:        object,
		}},
	}
	return marshalEnvelope(env)
}

type documentEnvelope struct {
	XMLName   xml.Name     `xml:"soap:Envelope"`
	XMLNSSoap string       `xml:"xmlns:soap,attr"`
	Body      documentBody `xml:"soap:Body"`
}

type documentBody struct {
	Bericht edcLk01 `xml:"ZKN:edcLk01"`
}

type edcLk01 struct {
	XMLNSZKN      string            `xml:"xmlns:ZKN,attr"`
	XMLNSStUF     string            `xml:"xmlns:StUF,attr"`
	XMLNSMime     string            `xml:"xmlns:mime,attr"`
	Stuurgegevens stuurgegevens     `xml:"ZKN:stuurgegevens"`
	Parameters    mutatieParameters `xml:"ZKN:parameters"`
	Object        documentObject    `xml:"ZKN:object"`
}

type documentObject struct {
	Entiteittype     string         `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string         `xml:"StUF:verwerkingssoort,attr"`
	Identificatie    string         `xml:"ZKN:identificatie"`
	Omschrijving     string         `xml:"ZKN:dct.omschrijving"`
	Creatiedatum     string         `xml:"ZKN:creatiedatum"`
	Titel            string         `xml:"ZKN:titel"`
	Formaat          string         `xml:"ZKN:formaat"`
	Taal             string         `xml:"ZKN:taal"`
	Status           string         `xml:"ZKN:status"`
	Vertrouwelijk    string         `xml:"ZKN:vertrouwelijkAanduiding"`
	Auteur           string         `xml:"ZKN:auteur"`
	Inhoud           documentInhoud `xml:"ZKN:inhoud"`
	IsRelevantVoor   isRelevantVoor `xml:"ZKN:isRelevantVoor"`
}

type documentInhoud struct {
	ContentType  string `xml:"mime:contentType,attr"`
	Bestandsnaam string `xml:"StUF:bestandsnaam,attr"`
	Data         string `xml:",chardata"`
}

type isRelevantVoor struct {
	Entiteittype     string  `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string  `xml:"StUF:verwerkingssoort,attr"`
	Gerelateerde     zaakRef `xml:"ZKN:gerelateerde"`
}

type zaakRef struct {
	Entiteittype     string `xml:"StUF:entiteittype,attr"`
	Verwerkingssoort string `xml:"StUF:verwerkingssoort,attr"`
	Identificatie    string `xml:"ZKN:identificatie"`
	Omschrijving     string `xml:"ZKN:omschrijving"`
}

// BuildAttachDocument renders a VoegZaakdocumentToe_Lk01 message carrying a
// base64-encoded PDF summary for the case created with the same sequence.
func BuildAttachDocument(signal *domain.Signal, sequence int, pdf []byte, now time.Time) []byte {
	env := documentEnvelope{
		XMLNSSoap: NamespaceSoap,
		Body: documentBody{Bericht: edcLk01{
			XMLNSZKN:      NamespaceZKN,
			XMLNSStUF:     NamespaceStUF,
			XMLNSMime:     NamespaceMime,
			Stuurgegevens: newStuurgegevens("Lk01", "EDC", now),
			Parameters:    mutatieParameters{Mutatiesoort: "T", IndicatorOvername: "V"},
			Object: documentObject{
				Entiteittype:     "EDC",
				Verwerkingssoort: "T",
				Identificatie:    uuid.NewString(),
				Omschrijving:     "Signal summary",
				Creatiedatum:     stufDate(now),
				Titel:            signal.Title,
				Formaat:          "PDF",
				Taal:             "NL",
				Status:           "Definitief",
				Vertrouwelijk:    "VERTROUWELIJK",
				Auteur:           senderApplication,
				Inhoud: documentInhoud{
					ContentType:  "application/pdf",
					Bestandsnaam: domain.SignalDisplayID(signal.ID) + ".pdf",
					Data:         base64.StdEncoding.EncodeToString(pdf),
				},
				IsRelevantVoor: isRelevantVoor{
					Entiteittype:     "EDCZAK",
					Verwerkingssoort: "T",
					Gerelateerde: zaakRef{
						Entiteittype:     "ZAK",
						Verwerkingssoort: "T",
						Identificatie:    domain.CaseID(signal.ID, sequence),
						Omschrijving:     caseDescription(signal, sequence),
					},
				},
			},
		}},
	}
	return marshalEnvelope(env)
}

// caseDescription is the brief line CityControl shows in its list view.
// The sequence number is included so operators can tell resends apart.
func caseDescription(signal *domain.Signal, sequence int) string {
	urgency := "Recurring"
	if signal.Priority == domain.PriorityHigh {
		urgency = "URGENT"
	}
	borough, ok := boroughCodes[signal.Location.Borough]
	if !ok {
		borough = "SD--"
	}
	return strings.Join([]string{
		domain.CaseID(signal.ID, sequence),
		urgency,
		borough,
		signal.Location.ShortAddress(),
	}, " ")
}

// incidentEnd returns the planned handling end date: an explicit incident
// end if present, otherwise created-at plus the priority's handling term.
func incidentEnd(signal *domain.Signal) time.Time {
	if signal.IncidentEndAt != nil {
		return *signal.IncidentEndAt
	}
	days, ok := handlingDays[signal.Priority]
	if !ok {
		days = handlingDays[domain.PriorityNormal]
	}
	return signal.CreatedAt.AddDate(0, 0, days)
}

// addressComplete reports whether the location has everything CityControl
// needs for an address block: non-empty city and street, and a numeric
// house number.
func addressComplete(l domain.Location) bool {
	if strings.TrimSpace(l.City) == "" || strings.TrimSpace(l.Street) == "" {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(l.HouseNumber))
	return err == nil
}
