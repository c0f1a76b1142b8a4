// ABOUTME: Tests for the request classifier.
// ABOUTME: Covers discovery, bootstrap, continuation, and invalid combinations.

package mcp

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		sessionID     string
		hasCredential bool
		want          requestClass
	}{
		{"initialize with credential is bootstrap", "initialize", "", true, classBootstrap},
		{"initialize without credential is discovery", "initialize", "", false, classDiscovery},
		{"tools/list without session or credential is discovery", "tools/list", "", false, classDiscovery},
		{"ping without session or credential is discovery", "ping", "", false, classDiscovery},
		{"session id always means continuation", "tools/call", "sess-1", false, classContinuation},
		{"session id wins over credential", "tools/call", "sess-1", true, classContinuation},
		{"initialize on existing session is continuation", "initialize", "sess-1", true, classContinuation},
		{"tools/call without session is invalid", "tools/call", "", true, classInvalid},
		{"tools/list with credential but no session is invalid", "tools/list", "", true, classInvalid},
		{"unknown method without session is invalid", "resources/list", "", false, classInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.method, tt.sessionID, tt.hasCredential)
			if got != tt.want {
				t.Errorf("classify(%q, %q, %v) = %v, want %v",
					tt.method, tt.sessionID, tt.hasCredential, got, tt.want)
			}
		})
	}
}
