// ABOUTME: Pure request classification run before any authorization check.
// ABOUTME: Decides discovery vs bootstrap vs continuation from method, session, and credential.

package mcp

// requestClass is the routing decision for one inbound request.
type requestClass int

const (
	// classDiscovery: capability probing with no session and no
	// credential; admitted without authorization.
	classDiscovery requestClass = iota
	// classBootstrap: an initialize request establishing a new session
	// under a presented credential.
	classBootstrap
	// classContinuation: a request carrying a session identifier.
	classContinuation
	// classInvalid: any other shape, rejected as a bad request.
	classInvalid
)

// discoveryMethods are servable without any credential.
var discoveryMethods = map[string]bool{
	"initialize": true,
	"tools/list": true,
	"ping":       true,
}

// classify maps a request's method, session identifier, and credential
// presence onto a requestClass. It consults no state and must run
// before any authorization so the discovery path never touches the
// authorizer.
func classify(method, sessionID string, hasCredential bool) requestClass {
	if sessionID != "" {
		return classContinuation
	}
	if method == "initialize" && hasCredential {
		return classBootstrap
	}
	if discoveryMethods[method] && !hasCredential {
		return classDiscovery
	}
	return classInvalid
}
