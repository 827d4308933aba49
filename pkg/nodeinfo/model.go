/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nodeinfo

const activityPubProtocol = "activitypub"

// Version specifies the version of the NodeInfo data.
type Version = string

const (
	// V2_0 is NodeInfo version 2.0 (http://nodeinfo.diaspora.software/ns/schema/2.0#).
	V2_0 Version = "2.0"

	// V2_1 is NodeInfo version 2.1 (http://nodeinfo.diaspora.software/ns/schema/2.1#).
	V2_1 Version = "2.1"
)

// NodeInfo contains NodeInfo data.
type NodeInfo struct {
	Version           string                 `json:"version"`
	Software          Software               `json:"software"`
	Protocols         []string               `json:"protocols"`
	Services          Services               `json:"services"`
	OpenRegistrations bool                   `json:"openRegistrations"`
	Usage             Usage                  `json:"usage"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// Software identifies the server software, including version.
type Software struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Repository string `json:"repository,omitempty"`
}

// Services lists the non-ActivityPub services this instance bridges to.
type Services struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

// Usage contains usage statistics.
type Usage struct {
	Users         Users `json:"users"`
	LocalPosts    int   `json:"localPosts"`
	LocalComments int   `json:"localComments"`
}

// Users contains the number of local users. The active counts are not
// tracked.
type Users struct {
	Total          int  `json:"total"`
	ActiveHalfyear *int `json:"activeHalfyear"`
	ActiveMonth    *int `json:"activeMonth"`
}

// WellKnownResponse is the /.well-known/nodeinfo discovery document.
type WellKnownResponse struct {
	Links []WellKnownLink `json:"links"`
}

// WellKnownLink points at a NodeInfo descriptor.
type WellKnownLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}
