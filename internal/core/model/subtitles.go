// Copyright 2025 ViralVibe Studio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
	"math"
	"strings"
)

// FormatSRTTimestamp renders seconds as an SRT timestamp,
// "HH:MM:SS,mmm", with millisecond precision.
func FormatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	secs := totalSeconds % 60
	mins := (totalSeconds / 60) % 60
	hours := totalSeconds / 3600
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, mins, secs, millis)
}

// BuildSRT renders the caption segments as a SubRip document: sequential
// 1-based indices, a timestamp range line, the caption text, and one blank
// line between entries.
func BuildSRT(segments []*CaptionSegment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1,
			FormatSRTTimestamp(s.StartSeconds),
			FormatSRTTimestamp(s.EndSeconds),
			s.Text)
		if i < len(segments)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RescaleCaptions stretches or compresses every segment's start and end by
// actualSeconds/assumedSeconds so the caption timeline lines up with the
// audio that will actually be muxed. Relative ordering and positive segment
// durations are preserved for any positive ratio. A non-positive assumed
// span leaves the segments untouched, since there is nothing to scale
// against.
func RescaleCaptions(segments []*CaptionSegment, actualSeconds, assumedSeconds float64) {
	if assumedSeconds <= 0 || actualSeconds <= 0 {
		return
	}
	ratio := actualSeconds / assumedSeconds
	for _, s := range segments {
		s.StartSeconds *= ratio
		s.EndSeconds *= ratio
	}
}
