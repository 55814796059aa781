// Package vocab holds the controlled vocabularies used by event records:
// event types, sectors, relationship names and campaign confidences.
// The built-in lists can be extended from a YAML file at startup.
package vocab

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Event type vocabulary
const (
	ApplicationCompromise  = "Application Compromise"
	DenialOfService        = "Denial of Service"
	DistributedDoS         = "Distributed Denial of Service"
	Exploitation           = "Exploitation"
	IntelSharing           = "Intel Sharing"
	MaliciousCode          = "Malicious Code"
	Phishing               = "Phishing"
	Scanning               = "Scanning"
	Sniffing               = "Sniffing"
	SocialEngineering      = "Social Engineering"
	Sponsored              = "Sponsored"
	StrategicWebCompromise = "Strategic Web Compromise"
	Unknown                = "Unknown"
)

var eventTypes = []string{
	ApplicationCompromise,
	DenialOfService,
	DistributedDoS,
	Exploitation,
	IntelSharing,
	MaliciousCode,
	Phishing,
	Scanning,
	Sniffing,
	SocialEngineering,
	Sponsored,
	StrategicWebCompromise,
	Unknown,
}

var sectors = []string{
	"Agriculture",
	"Banking and Finance",
	"Chemical",
	"Commercial Facilities",
	"Communications",
	"Critical Manufacturing",
	"Defense Industrial Base",
	"Education",
	"Emergency Services",
	"Energy",
	"Government",
	"Healthcare and Public Health",
	"Information Technology",
	"Nuclear",
	"Postal and Shipping",
	"Retail",
	"Transportation",
	"Water",
}

var relationshipTypes = []string{
	"Related To",
	"Compressed From",
	"Compressed Into",
	"Connected From",
	"Connected To",
	"Created By",
	"Downloaded From",
	"Dropped By",
	"Sent By",
	"Sub-domain Of",
}

var confidences = []string{"low", "medium", "high"}

// EventTypes returns the event type options, sorted.
func EventTypes() []string {
	out := make([]string, len(eventTypes))
	copy(out, eventTypes)
	sort.Strings(out)
	return out
}

// Sectors returns the sector options, sorted.
func Sectors() []string {
	out := make([]string, len(sectors))
	copy(out, sectors)
	sort.Strings(out)
	return out
}

// RelationshipTypes returns the relationship name options.
func RelationshipTypes() []string {
	out := make([]string, len(relationshipTypes))
	copy(out, relationshipTypes)
	return out
}

// Confidences returns the campaign confidence options.
func Confidences() []string {
	out := make([]string, len(confidences))
	copy(out, confidences)
	return out
}

// ValidEventType reports whether t is a known event type.
func ValidEventType(t string) bool {
	return contains(eventTypes, t)
}

// ValidSector reports whether s is a known sector.
func ValidSector(s string) bool {
	return contains(sectors, s)
}

// ValidConfidence reports whether c is a known confidence level.
func ValidConfidence(c string) bool {
	return contains(confidences, c)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

type overrides struct {
	EventTypes []string `yaml:"event_types"`
	Sectors    []string `yaml:"sectors"`
}

// LoadOverrides merges additional vocabulary entries from a YAML file.
// Unknown keys are ignored; duplicates are dropped.
func LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read vocab overrides: %w", err)
	}

	var o overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("parse vocab overrides: %w", err)
	}

	for _, t := range o.EventTypes {
		if t != "" && !contains(eventTypes, t) {
			eventTypes = append(eventTypes, t)
		}
	}
	for _, s := range o.Sectors {
		if s != "" && !contains(sectors, s) {
			sectors = append(sectors, s)
		}
	}
	return nil
}
