package directory

import (
	"encoding/json"
	"sort"
)

// DirectoryType is the hds.type value a directory reports from identify.
const DirectoryType = "hds.directory"

// Well-known host state attributes.
const (
	AttrName         = "hds.name"
	AttrHost         = "hds.host"
	AttrContactName  = "hds.contact.name"
	AttrContactEmail = "hds.contact.email"
	AttrCountryCode  = "hds.countrycode"
)

const attrExpired = "hds.expired"

// Identity is the identify response.
type Identity struct {
	ServerName string `json:"hds.servername"`
	ServerType string `json:"hds.type"`
}

// HostMetadata describes one host's registration under a topic.
type HostMetadata struct {
	Subtopics []string `json:"subtopics"`
	Signature string   `json:"hds.signature"`
}

// Membership maps full host identities to their registration under a topic.
type Membership map[string]HostMetadata

// Hosts returns the member identities in sorted order.
func (m Membership) Hosts() []string {
	hosts := make([]string, 0, len(m))
	for id := range m {
		hosts = append(hosts, id)
	}
	sort.Strings(hosts)
	return hosts
}

// Attribute is one signed host state entry.
type Attribute struct {
	Value       string `json:"value"`
	Signature   string `json:"hds.signature"`
	TTL         int64  `json:"hds.ttl"`
	LastUpdated int64  `json:"hds.last_updated,omitempty"`
}

// UnmarshalJSON accepts non-string values, keeping their JSON text.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value       json.RawMessage `json:"value"`
		Signature   string          `json:"hds.signature"`
		TTL         int64           `json:"hds.ttl"`
		LastUpdated int64           `json:"hds.last_updated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Signature = raw.Signature
	a.TTL = raw.TTL
	a.LastUpdated = raw.LastUpdated
	a.Value = ""
	if len(raw.Value) > 0 && string(raw.Value) != "null" {
		var s string
		if err := json.Unmarshal(raw.Value, &s); err == nil {
			a.Value = s
		} else {
			a.Value = string(raw.Value)
		}
	}
	return nil
}

// HostState is a host's attribute map as served by the directory.
type HostState struct {
	Identity   string               `json:"identity"`
	Attributes map[string]Attribute `json:"attributes"`
	// Expired lists attributes the directory marked stale. In paranoid mode
	// they are already removed from Attributes.
	Expired []string `json:"expired,omitempty"`
}

// Value returns an attribute value.
func (s HostState) Value(key string) (string, bool) {
	a, ok := s.Attributes[key]
	if !ok {
		return "", false
	}
	return a.Value, true
}

// Profile holds the well-known descriptive attributes of a host.
type Profile struct {
	Name         string `json:"name,omitempty"`
	Host         string `json:"host,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// HasContact reports whether any contact attribute is present.
func (p Profile) HasContact() bool {
	return p.ContactName != "" || p.ContactEmail != ""
}

// Profile extracts the well-known attributes.
func (s HostState) Profile() Profile {
	get := func(k string) string {
		v, _ := s.Value(k)
		return v
	}
	return Profile{
		Name:         get(AttrName),
		Host:         get(AttrHost),
		ContactName:  get(AttrContactName),
		ContactEmail: get(AttrContactEmail),
		CountryCode:  get(AttrCountryCode),
	}
}

// errorEnvelope is the body a directory sends on failure.
type errorEnvelope struct {
	Type string `json:"hds.error"`
	Text string `json:"hds.error.text"`
}

// HDS error types that map to not-found semantics.
const (
	ErrTypeTopicMissing = "hds.error.topic.missing"
	ErrTypeHostMissing  = "hds.error.host.missing"
)
