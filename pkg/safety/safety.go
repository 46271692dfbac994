// Copyright 2025 Arada AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package safety implements the input/output content filter (spec §4.6):
// substring and regex rule matching plus built-in pattern sets for the
// high and maximum levels. On violation the caller aborts the invocation;
// this package never rewrites content.
package safety

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aradaai/agentcore/pkg/config"
)

var inputSuspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hack|exploit|bypass|inject)\b`),
	regexp.MustCompile(`(?i)(?:password|secret|api.?key)\s*[:=]`),
}

var outputSensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),               // SSN shape
	regexp.MustCompile(`\b\d{16}\b`),                          // credit-card shape
	regexp.MustCompile(`(?i)(?:password|secret|key)[\s:=]+\S+`), // credential pattern
}

// Request is one check_input/check_output call.
type Request struct {
	Content        string
	Level          config.SafetyLevel
	BlockedTopics  []string
	BlockedRegexes []string
}

// Result is the outcome of one safety check.
type Result struct {
	IsSafe          bool
	Violations      []string
	Confidence      float64
	FilteredContent *string
}

// CheckInput applies the rule set to user-supplied content.
func CheckInput(req Request) Result {
	violations := matchTopicsAndPatterns(req, "Blocked topic", "Blocked pattern")

	if strict(req.Level) {
		for _, p := range inputSuspiciousPatterns {
			if p.MatchString(req.Content) {
				violations = append(violations, "Suspicious content pattern detected")
				break
			}
		}
	}

	return result(violations, 0.9)
}

// CheckOutput applies the rule set to model-generated content.
func CheckOutput(req Request) Result {
	violations := matchTopicsAndPatterns(req, "Output contains blocked topic", "Blocked pattern")

	if strict(req.Level) {
		for _, p := range outputSensitivePatterns {
			if p.MatchString(req.Content) {
				violations = append(violations, "Potential sensitive data in output")
				break
			}
		}
	}

	return result(violations, 0.85)
}

func strict(level config.SafetyLevel) bool {
	return level == config.SafetyHigh || level == config.SafetyMaximum
}

func matchTopicsAndPatterns(req Request, topicLabel, patternLabel string) []string {
	var violations []string

	contentLower := strings.ToLower(req.Content)
	for _, topic := range req.BlockedTopics {
		if topic == "" {
			continue
		}
		if strings.Contains(contentLower, strings.ToLower(topic)) {
			violations = append(violations, fmt.Sprintf("%s: %s", topicLabel, topic))
		}
	}

	for _, pattern := range req.BlockedRegexes {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			slog.Warn("safety: invalid regex pattern, ignoring", "pattern", pattern, "error", err)
			continue
		}
		if re.MatchString(req.Content) {
			violations = append(violations, fmt.Sprintf("%s: %s", patternLabel, pattern))
		}
	}

	return violations
}

func result(violations []string, confidenceOnViolation float64) Result {
	if len(violations) == 0 {
		return Result{IsSafe: true, Confidence: 1.0}
	}
	return Result{IsSafe: false, Violations: violations, Confidence: confidenceOnViolation}
}
