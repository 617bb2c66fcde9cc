package ews

// Pure XML transcoding between device documents and the entity types of
// this package. Nothing here talks to the network or interprets status
// codes.
//
// The device is lax about namespace prefixes on input but expects the
// prefixes below on documents we send, so parsing matches local names only
// while serialization spells the prefixes out.

import (
	"encoding/xml"
	"fmt"
)

const (
	nsDD           = "http://www.hp.com/schemas/imaging/con/dictionaries/1.0/"
	nsWalkup       = "http://www.hp.com/schemas/imaging/con/rest/walkupscan/2009/09/21"
	nsWalkupToComp = "http://www.hp.com/schemas/imaging/con/walkupscantocomp/2010/09/28"
	nsScan         = "http://www.hp.com/schemas/imaging/con/cnx/scan/2008/08/19"
)

// ---------------------------------------------------------------------------
// Destinations
// ---------------------------------------------------------------------------

type walkupDestinationOut struct {
	XMLName  xml.Name `xml:"wus:WalkupScanDestination"`
	NSWus    string   `xml:"xmlns:wus,attr"`
	NSDD     string   `xml:"xmlns:dd,attr"`
	Hostname string   `xml:"dd:Hostname"`
	Name     string   `xml:"dd:Name"`
	ClientID string   `xml:"dd:ClientID,omitempty"`
	LinkType string   `xml:"wus:LinkType"`
}

type walkupToCompDestinationOut struct {
	XMLName  xml.Name `xml:"wtc:WalkupScanToCompDestination"`
	NSWtc    string   `xml:"xmlns:wtc,attr"`
	NSDD     string   `xml:"xmlns:dd,attr"`
	Hostname string   `xml:"dd:Hostname"`
	Name     string   `xml:"dd:Name"`
	ClientID string   `xml:"dd:ClientID,omitempty"`
	LinkType string   `xml:"wtc:LinkType"`
}

type destinationIn struct {
	Hostname string `xml:"Hostname"`
	Name     string `xml:"Name"`
	ClientID string `xml:"ClientID"`
	LinkType string `xml:"LinkType"`
	Shortcut string `xml:"WalkupScanToCompSettings>Shortcut"`
}

type destinationCollectionIn struct {
	Walkup []destinationIn `xml:"WalkupScanDestination"`
	ToComp []destinationIn `xml:"WalkupScanToCompDestination"`
}

// marshalDestination serializes d to the XML shape of its variant.
func marshalDestination(d Destination) ([]byte, error) {
	linkType := d.LinkType
	if linkType == "" {
		linkType = "Network"
	}

	var doc any
	switch d.Variant {
	case VariantWalkupToComp:
		doc = walkupToCompDestinationOut{
			NSWtc:    nsWalkupToComp,
			NSDD:     nsDD,
			Hostname: d.Hostname,
			Name:     d.Name,
			ClientID: d.ClientID,
			LinkType: linkType,
		}
	default:
		doc = walkupDestinationOut{
			NSWus:    nsWalkup,
			NSDD:     nsDD,
			Hostname: d.Hostname,
			Name:     d.Name,
			ClientID: d.ClientID,
			LinkType: linkType,
		}
	}

	data, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

// parseDestination parses a single destination document of the given variant.
func parseDestination(v Variant, data []byte) (Destination, error) {
	var in destinationIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return Destination{}, err
	}
	return destinationFromWire(v, in), nil
}

// parseDestinationCollection parses a destination collection document.
func parseDestinationCollection(v Variant, data []byte) ([]Destination, error) {
	var in destinationCollectionIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	entries := in.Walkup
	if v == VariantWalkupToComp {
		entries = in.ToComp
	}
	ds := make([]Destination, 0, len(entries))
	for _, e := range entries {
		ds = append(ds, destinationFromWire(v, e))
	}
	return ds, nil
}

func destinationFromWire(v Variant, in destinationIn) Destination {
	return Destination{
		Variant:  v,
		Name:     in.Name,
		Hostname: in.Hostname,
		ClientID: in.ClientID,
		LinkType: in.LinkType,
		Shortcut: in.Shortcut,
	}
}

// ---------------------------------------------------------------------------
// Event table
// ---------------------------------------------------------------------------

type eventTableIn struct {
	Events []struct {
		Category   string `xml:"UnqualifiedEventCategory"`
		AgingStamp string `xml:"AgingStamp"`
		Payloads   []struct {
			ResourceURI  string `xml:"ResourceURI"`
			ResourceType string `xml:"ResourceType"`
		} `xml:"Payload"`
	} `xml:"Event"`
}

func parseEventTable(data []byte) ([]Event, error) {
	var in eventTableIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(in.Events))
	for _, e := range in.Events {
		ev := Event{Category: e.Category, AgingStamp: e.AgingStamp}
		for _, p := range e.Payloads {
			ev.Payloads = append(ev.Payloads, Payload{
				ResourceURI:  p.ResourceURI,
				ResourceType: p.ResourceType,
			})
		}
		events = append(events, ev)
	}
	return events, nil
}

// ---------------------------------------------------------------------------
// Scan jobs
// ---------------------------------------------------------------------------

type jobSettingsOut struct {
	XMLName     xml.Name `xml:"ScanSettings"`
	NS          string   `xml:"xmlns,attr"`
	XResolution int      `xml:"XResolution"`
	YResolution int      `xml:"YResolution"`
	XStart      int      `xml:"XStart"`
	YStart      int      `xml:"YStart"`
	Width       int      `xml:"Width"`
	Height      int      `xml:"Height"`
	Format      string   `xml:"Format"`
	ColorSpace  string   `xml:"ColorSpace"`
	BitDepth    int      `xml:"BitDepth"`
	InputSource string   `xml:"InputSource"`
}

func marshalJobSettings(s JobSettings) ([]byte, error) {
	out := jobSettingsOut{
		NS:          nsScan,
		XResolution: s.XResolution,
		YResolution: s.YResolution,
		Width:       s.Width,
		Height:      s.Height,
		Format:      s.Format,
		ColorSpace:  s.ColorSpace,
		BitDepth:    s.BitDepth,
		InputSource: s.Source,
	}
	data, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

type jobStatusIn struct {
	State string `xml:"JobState"`
	Pages []struct {
		Number    int    `xml:"PageNumber"`
		State     string `xml:"PageState"`
		BinaryURL string `xml:"BinaryURL"`
	} `xml:"ScanJob>PreScanPage"`
}

func parseJobStatus(data []byte) (JobStatus, error) {
	var in jobStatusIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return JobStatus{}, err
	}
	if in.State == "" {
		return JobStatus{}, fmt.Errorf("job document carries no JobState")
	}
	status := JobStatus{State: JobState(in.State)}
	for _, p := range in.Pages {
		status.Pages = append(status.Pages, PageInfo{
			Number:    p.Number,
			State:     p.State,
			BinaryURL: p.BinaryURL,
		})
	}
	return status, nil
}

// ---------------------------------------------------------------------------
// Device topology, capabilities, status
// ---------------------------------------------------------------------------

type discoveryTreeIn struct {
	Interfaces []struct {
		ResourceType string `xml:"ResourceType"`
		ManifestURI  string `xml:"ManifestURI"`
	} `xml:"SupportedIfc"`
}

func parseDiscoveryTree(data []byte) (DiscoveryTree, error) {
	var in discoveryTreeIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return DiscoveryTree{}, err
	}
	var tree DiscoveryTree
	for _, ifc := range in.Interfaces {
		tree.Interfaces = append(tree.Interfaces, SupportedInterface{
			ResourceType: ifc.ResourceType,
			ManifestURI:  ifc.ManifestURI,
		})
	}
	return tree, nil
}

type scanCapsIn struct {
	ColorSpaces []string `xml:"ColorEntries>ColorEntry>ColorType"`
	Resolutions []struct {
		X int `xml:"XResolution"`
	} `xml:"Platen>InputSourceCaps>SupportedResolutions>Resolution"`
	AdfResolutions []struct {
		X int `xml:"XResolution"`
	} `xml:"Adf>InputSourceCaps>SupportedResolutions>Resolution"`
	MaxWidth  int `xml:"Platen>InputSourceCaps>MaxWidth"`
	MaxHeight int `xml:"Platen>InputSourceCaps>MaxHeight"`
}

func parseScanCaps(data []byte) (Capabilities, error) {
	var in scanCapsIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return Capabilities{}, err
	}
	caps := Capabilities{
		ColorSpaces: in.ColorSpaces,
		MaxWidth:    in.MaxWidth,
		MaxHeight:   in.MaxHeight,
	}
	seen := map[int]bool{}
	for _, r := range append(in.Resolutions, in.AdfResolutions...) {
		if r.X > 0 && !seen[r.X] {
			seen[r.X] = true
			caps.Resolutions = append(caps.Resolutions, r.X)
		}
	}
	return caps, nil
}

type scanStatusIn struct {
	ScannerState string `xml:"ScannerState"`
	AdfState     string `xml:"AdfState"`
}

func parseScanStatus(data []byte) (ScanStatus, error) {
	var in scanStatusIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return ScanStatus{}, err
	}
	return ScanStatus{ScannerState: in.ScannerState, AdfState: in.AdfState}, nil
}
