package sigmax

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-signal-relay/core"
)

// Implements the case-creation (CreeerZaak_Lk01) and document-attachment
// (VoegZaakdocumentToe_Lk01) messages from the Sigmax / CityControl
// "Zaak- en Documentservices" interface, sections 3.1 and 3.3 of the
// technical documentation version 1.1.0.

const (
	SOAPActionCreateCase  = "http://www.egem.nl/StUF/sector/zkn/0310/CreeerZaak_Lk01"
	SOAPActionAddDocument = "http://www.egem.nl/StUF/sector/zkn/0310/VoegZaakdocumentToe_Lk01"
)

const defaultDescription = "Dit is een test bericht"

// stufTimestamp is YYYYMMDDHHMMSS, stufDate is YYYYMMDD.
const (
	stufTimestamp = "20060102150405"
	stufDate      = "20060102"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(value string) string {
	return xmlEscaper.Replace(value)
}

func formatTimestamp(t time.Time) string {
	return t.Format(stufTimestamp)
}

func formatDate(t time.Time) string {
	return t.Format(stufDate)
}

func parseSignalTime(field string, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("sigmax: signal field %q is empty", field)
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sigmax: signal field %q holds malformed timestamp %q: %w", field, value, err)
	}
	return parsed, nil
}

const caseCreationTemplate = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
   <soap:Body>
      <ZKN:zakLk01 xmlns:ZKN="http://www.egem.nl/StUF/sector/zkn/0310" xmlns:BG="http://www.egem.nl/StUF/sector/bg/0310" xmlns:StUF="http://www.egem.nl/StUF/StUF0301">
         <ZKN:stuurgegevens>
            <StUF:berichtcode>Lk01</StUF:berichtcode>
            <StUF:zender>
               <StUF:organisatie>AMS</StUF:organisatie>
               <StUF:applicatie>VER</StUF:applicatie>
            </StUF:zender>
            <StUF:ontvanger>
               <StUF:organisatie>SMX</StUF:organisatie>
               <StUF:applicatie>CTC</StUF:applicatie>
            </StUF:ontvanger>
            <StUF:referentienummer>%[1]s</StUF:referentienummer>
            <StUF:tijdstipBericht>%[2]s</StUF:tijdstipBericht>
            <StUF:entiteittype>ZAK</StUF:entiteittype>
         </ZKN:stuurgegevens>
         <ZKN:parameters>
            <StUF:mutatiesoort>T</StUF:mutatiesoort>
            <StUF:indicatorOvername>V</StUF:indicatorOvername>
         </ZKN:parameters>
         <ZKN:object StUF:entiteittype="ZAK" StUF:sleutelGegevensbeheer="" StUF:verwerkingssoort="T">
            <ZKN:identificatie>%[1]s</ZKN:identificatie>
            <ZKN:omschrijving>%[3]s</ZKN:omschrijving>
            <ZKN:startdatum>%[4]s</ZKN:startdatum>
            <ZKN:registratiedatum>%[5]s</ZKN:registratiedatum>
            <ZKN:einddatumGepland>%[6]s</ZKN:einddatumGepland>
            <ZKN:archiefnominatie>N</ZKN:archiefnominatie>
            <ZKN:zaakniveau>1</ZKN:zaakniveau>
            <ZKN:deelzakenIndicatie>N</ZKN:deelzakenIndicatie>
            <StUF:extraElementen>
               <StUF:extraElement naam="Ycoordinaat">%[7]s</StUF:extraElement>
               <StUF:extraElement naam="Xcoordinaat">%[8]s</StUF:extraElement>
            </StUF:extraElementen>
            <ZKN:isVan StUF:entiteittype="ZAKZKT" StUF:verwerkingssoort="T">
               <ZKN:gerelateerde StUF:entiteittype="ZKT" StUF:sleutelOntvangend="1" StUF:verwerkingssoort="T">
                  <ZKN:omschrijving>Uitvoeren controle</ZKN:omschrijving>
                  <ZKN:code>2</ZKN:code>
               </ZKN:gerelateerde>
            </ZKN:isVan>
            <ZKN:heeftBetrekkingOp StUF:entiteittype="ZAKOBJ" StUF:verwerkingssoort="T">
               <ZKN:gerelateerde>
                  <ZKN:adres StUF:entiteittype="AOA" StUF:verwerkingssoort="T">
                     <BG:wpl.woonplaatsNaam>Amsterdam</BG:wpl.woonplaatsNaam>
                     <BG:gor.openbareRuimteNaam>%[9]s</BG:gor.openbareRuimteNaam>
                     <BG:huisnummer>%[10]s</BG:huisnummer>
                     <BG:huisletter StUF:noValue="geenWaarde" xsi:nil="true"/>
                     <BG:postcode>%[11]s</BG:postcode>
                  </ZKN:adres>
               </ZKN:gerelateerde>
            </ZKN:heeftBetrekkingOp>
         </ZKN:object>
      </ZKN:zakLk01>
   </soap:Body>
</soap:Envelope>`

// EncodeCaseCreation renders the case-creation envelope for a signal. The
// signal id and created_at timestamp are required; incident dates default
// to created_at when the signal omits them and address fields render empty.
// Every interpolated value is XML-escaped.
func EncodeCaseCreation(signal core.Signal) (string, error) {
	signalID := signal.ID()
	if signalID == "" {
		return "", fmt.Errorf("sigmax: signal id is required")
	}

	createdAt, err := parseSignalTime("created_at", signal.String("created_at"))
	if err != nil {
		return "", err
	}

	incidentStart := createdAt
	if raw := signal.String("incident_date_start"); raw != "" {
		if incidentStart, err = parseSignalTime("incident_date_start", raw); err != nil {
			return "", err
		}
	}
	incidentEnd := createdAt
	if raw := signal.String("incident_date_end"); raw != "" {
		if incidentEnd, err = parseSignalTime("incident_date_end", raw); err != nil {
			return "", err
		}
	}

	description := signal.String("text")
	if description == "" {
		description = defaultDescription
	}

	coordinates := signalCoordinates(signal)

	return fmt.Sprintf(caseCreationTemplate,
		escapeXML(signalID),
		escapeXML(formatTimestamp(createdAt)),
		escapeXML(description),
		escapeXML(formatDate(incidentStart)),
		escapeXML(formatDate(createdAt)),
		escapeXML(formatDate(incidentEnd)),
		escapeXML(coordinates[1]),
		escapeXML(coordinates[0]),
		escapeXML(signal.LookupString("location", "address", "openbare_ruimte")),
		escapeXML(signal.LookupString("location", "address", "huisnummer")),
		escapeXML(signal.LookupString("location", "address", "postcode")),
	), nil
}

// signalCoordinates reads location.geometrie.coordinates as [x, y] strings.
func signalCoordinates(signal core.Signal) [2]string {
	coordinates := [2]string{"", ""}
	value, ok := signal.Lookup("location", "geometrie", "coordinates")
	if !ok {
		return coordinates
	}
	list, ok := value.([]any)
	if !ok {
		return coordinates
	}
	for i := 0; i < len(list) && i < 2; i++ {
		if list[i] != nil {
			coordinates[i] = strings.TrimSpace(fmt.Sprint(list[i]))
		}
	}
	return coordinates
}

const documentAttachmentTemplate = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">
   <soap:Body>
      <ZKN:edcLk01 xmlns:ZKN="http://www.egem.nl/StUF/sector/zkn/0310" xmlns:StUF="http://www.egem.nl/StUF/StUF0301">
         <ZKN:stuurgegevens>
            <StUF:berichtcode>Lk01</StUF:berichtcode>
            <StUF:zender>
               <StUF:organisatie>AMS</StUF:organisatie>
               <StUF:applicatie>VER</StUF:applicatie>
            </StUF:zender>
            <StUF:ontvanger>
               <StUF:organisatie>SMX</StUF:organisatie>
               <StUF:applicatie>CTC</StUF:applicatie>
            </StUF:ontvanger>
            <StUF:referentienummer>%[1]s</StUF:referentienummer>
            <StUF:tijdstipBericht>%[2]s</StUF:tijdstipBericht>
            <StUF:entiteittype>EDC</StUF:entiteittype>
         </ZKN:stuurgegevens>
         <ZKN:parameters>
            <StUF:mutatiesoort>T</StUF:mutatiesoort>
            <StUF:indicatorOvername>V</StUF:indicatorOvername>
         </ZKN:parameters>
         <ZKN:object StUF:entiteittype="EDC" StUF:verwerkingssoort="T">
            <ZKN:identificatie>%[1]s</ZKN:identificatie>
            <ZKN:dct.omschrijving>Foto</ZKN:dct.omschrijving>
            <ZKN:creatiedatum>%[3]s</ZKN:creatiedatum>
            <ZKN:titel>%[4]s</ZKN:titel>
            <ZKN:formaat>%[5]s</ZKN:formaat>
            <ZKN:taal>NL</ZKN:taal>
            <ZKN:versie>1</ZKN:versie>
            <ZKN:status>definitief</ZKN:status>
            <ZKN:verzenddatum>%[3]s</ZKN:verzenddatum>
            <ZKN:vertrouwelijkAanduiding>OPENBAAR</ZKN:vertrouwelijkAanduiding>
            <ZKN:auteur>SIA Amsterdam</ZKN:auteur>
            <ZKN:inhoud StUF:bestandsnaam="%[4]s">%[6]s</ZKN:inhoud>
            <ZKN:isRelevantVoor StUF:entiteittype="EDCZAK" StUF:verwerkingssoort="T">
               <ZKN:gerelateerde StUF:entiteittype="ZAK" StUF:verwerkingssoort="I">
                  <ZKN:identificatie>%[7]s</ZKN:identificatie>
               </ZKN:gerelateerde>
            </ZKN:isRelevantVoor>
         </ZKN:object>
      </ZKN:edcLk01>
   </soap:Body>
</soap:Envelope>`

// EncodeDocumentAttachment renders the VoegZaakdocumentToe_Lk01 envelope
// that attaches one document to an already created case.
func EncodeDocumentAttachment(signalID string, doc Document, sentAt time.Time) (string, error) {
	signalID = strings.TrimSpace(signalID)
	if signalID == "" {
		return "", fmt.Errorf("sigmax: signal id is required")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return "", fmt.Errorf("sigmax: document id is required")
	}
	if len(doc.Content) == 0 {
		return "", fmt.Errorf("sigmax: document content is empty")
	}

	return fmt.Sprintf(documentAttachmentTemplate,
		escapeXML(doc.ID),
		escapeXML(formatTimestamp(sentAt)),
		escapeXML(formatDate(sentAt)),
		escapeXML(doc.Filename(signalID)),
		escapeXML(doc.Format),
		doc.ContentBase64(),
		escapeXML(signalID),
	), nil
}
