package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfigLoad    ReasonCode = "config_load"
	ReasonProviderBuild ReasonCode = "provider_build"

	ReasonEndpointRequest   ReasonCode = "endpoint_request"
	ReasonEndpointStatus    ReasonCode = "endpoint_status"
	ReasonEndpointDecode    ReasonCode = "endpoint_decode"
	ReasonEndpointRateLimit ReasonCode = "endpoint_rate_limit"

	ReasonToolSelect  ReasonCode = "tool_select"
	ReasonToolUnknown ReasonCode = "tool_unknown"
	ReasonToolExec    ReasonCode = "tool_exec"
	ReasonToolTimeout ReasonCode = "tool_timeout"
)
