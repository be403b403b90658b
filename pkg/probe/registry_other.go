//go:build !windows

package probe

import (
	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
)

// Registry is unsupported on non-Windows platforms, matching the
// original's #ifdef WIN32 gating: it always reports Invalid.
func Registry(key string, valueName string, pattern *match.Pattern, targets *TargetBuffer) policy.Result {
	targets.Add(key)
	return policy.Invalid
}
