//go:build windows

package probe

import (
	"github.com/kubecomply/scaagent/pkg/match"
	"github.com/kubecomply/scaagent/pkg/policy"
	"golang.org/x/sys/windows/registry"
)

// Registry evaluates a Registry rule by probing key in both the 64- and
// 32-bit registry views (spec.md §4.2).
func Registry(key string, valueName string, pattern *match.Pattern, targets *TargetBuffer) policy.Result {
	targets.Add(key)

	root, subkey, ok := splitRegistryKey(key)
	if !ok {
		return policy.Invalid
	}

	r64 := probeView(root, subkey, valueName, pattern, registry.WOW64_64KEY)
	r32 := probeView(root, subkey, valueName, pattern, registry.WOW64_32KEY)

	if r64 == policy.Found || r32 == policy.Found {
		return policy.Found
	}
	if r64 == policy.Invalid && r32 == policy.Invalid {
		return policy.Invalid
	}
	return policy.NotFound
}

func probeView(root registry.Key, subkey, valueName string, pattern *match.Pattern, view uint32) policy.Result {
	k, err := registry.OpenKey(root, subkey, registry.READ|view)
	if err != nil {
		if valueName == "" {
			return policy.NotFound
		}
		return policy.NotFound
	}
	defer k.Close()

	if valueName == "" {
		return policy.Found
	}

	value, _, err := k.GetStringValue(valueName)
	if err != nil {
		if pattern != nil {
			return policy.Invalid
		}
		return policy.NotFound
	}

	if pattern == nil {
		return policy.Found
	}
	if pattern.Match(value) {
		return policy.Found
	}
	return policy.NotFound
}

func splitRegistryKey(key string) (registry.Key, string, bool) {
	roots := map[string]registry.Key{
		"HKEY_LOCAL_MACHINE": registry.LOCAL_MACHINE,
		"HKLM":               registry.LOCAL_MACHINE,
		"HKEY_CURRENT_USER":  registry.CURRENT_USER,
		"HKCU":               registry.CURRENT_USER,
	}
	for prefix, root := range roots {
		if len(key) > len(prefix)+1 && key[:len(prefix)] == prefix && key[len(prefix)] == '\\' {
			return root, key[len(prefix)+1:], true
		}
	}
	return 0, "", false
}
