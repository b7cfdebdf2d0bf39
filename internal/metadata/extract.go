package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"adcpview/internal/calendar"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

// Source variables read by Extract
const (
	VarTime       = "TIME"
	VarCruise     = "SDN_CRUISE"
	VarXLink      = "SDN_XLINK"
	VarLocalCDIID = "SDN_LOCAL_CDI_ID"
)

var errNoReference = errors.New("no sdn_reference element with an href")

// Extract builds the metadata record of the survey file name from its raw
// dataset.
func Extract(name string, raw *dataset.Dataset) (*Record, error) {
	start, end, err := surveyPeriod(raw)
	if err != nil {
		return nil, err
	}

	url, err := userInterfaceURL(raw)
	if err != nil {
		return nil, err
	}

	attrs := raw.Attrs()
	var cruise dataset.Attrs
	if v, ok := raw.Var(VarCruise); ok {
		cruise = v.Attrs
	}

	r := &Record{}
	r.set(KeyFilename, dataset.Some(name))
	r.set(KeyShipName, cruise.Lookup("shipname"))
	r.set(KeyShipCode, cruise.Lookup("shipcode"))
	r.set(KeyDateStart, dataset.Some(start.String()))
	r.set(KeyDateEnd, dataset.Some(end.String()))
	r.set(KeyFrequencyKHz, digitsOf(attrs.Lookup(attrADCPFrequency), false))
	r.set(KeyBinLengthMeter, digitsOf(attrs.Lookup(attrBinLength), true))
	r.set(KeyYear, dataset.Some(strconv.Itoa(start.Year)))
	for _, key := range CopiedAttributes {
		r.set(key, attrs.Lookup(key))
	}
	r.set(KeyPrincipalInvestigator, attrs.Lookup(KeyPrincipalInvestigator))
	r.set(KeyProject, attrs.Lookup(KeyProject))
	r.set(KeyUserInterfaceURL, url)
	r.set(KeyLocalCDIID, firstText(raw, VarLocalCDIID))

	return r, nil
}

// surveyPeriod returns the dates of the first and last present TIME values.
func surveyPeriod(raw *dataset.Dataset) (start, end calendar.Date, err error) {
	tv, err := raw.MustVar(VarTime)
	if err != nil {
		return start, end, apperrors.NewDataFormatError(VarTime, err)
	}

	var dates []calendar.Date
	switch tv.Kind() {
	case dataset.Temporal:
		for _, t := range tv.Times {
			if !t.IsZero() {
				dates = append(dates, calendar.ToDate(calendar.FromTime(t)))
			}
		}
	case dataset.Float:
		for _, jd := range tv.Data {
			if !math.IsNaN(jd) && !math.IsInf(jd, 0) {
				dates = append(dates, calendar.ToDate(jd))
			}
		}
	}
	if len(dates) == 0 {
		return start, end, apperrors.NewDataFormatError(VarTime, errors.New("no time values present"))
	}
	return dates[0], dates[len(dates)-1], nil
}

// digitsOf keeps only the decimal digits of v. With nullIfEmpty, a value
// without digits becomes null.
func digitsOf(v dataset.Value, nullIfEmpty bool) dataset.Value {
	if !v.Valid() {
		return dataset.Null
	}
	var b strings.Builder
	for _, r := range v.String() {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 && nullIfEmpty {
		return dataset.Null
	}
	return dataset.Some(b.String())
}

// userInterfaceURL returns the catalogue page of the survey: the href of the
// sdn_reference element in SDN_XLINK without its last path segment.
func userInterfaceURL(raw *dataset.Dataset) (dataset.Value, error) {
	link := firstText(raw, VarXLink)
	if !link.Valid() {
		return dataset.Null, nil
	}
	href, err := referenceHref(link.String())
	if err != nil {
		return dataset.Null, apperrors.NewDataFormatError(VarXLink, err)
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[:i]
	} else {
		href = ""
	}
	return dataset.Some(href), nil
}

func referenceHref(doc string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return "", errNoReference
		}
		if err != nil {
			return "", fmt.Errorf("parse link: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sdn_reference" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "href" {
				return a.Value, nil
			}
		}
		return "", errNoReference
	}
}

// firstText returns the first non-empty element of a text variable.
func firstText(raw *dataset.Dataset, name string) dataset.Value {
	v, ok := raw.Var(name)
	if !ok || v.Kind() != dataset.Text {
		return dataset.Null
	}
	for _, s := range v.Text {
		if s != "" {
			return dataset.Some(s)
		}
	}
	return dataset.Null
}
