package opcua

import (
	"github.com/gopcua/opcua/ua"

	"github.com/edgeflow/modgate/internal/gatewayerr"
)

type policySetting struct {
	policy string
	mode   ua.MessageSecurityMode
}

// securityPolicies maps the project document's configured policy names
// onto ua.MessageSecurityMode pairs. At least one policy must be enabled.
func securityPolicies(names []string) ([]policySetting, error) {
	if len(names) == 0 {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "at least one OPC UA security policy must be enabled")
	}

	var out []policySetting
	for _, name := range names {
		switch name {
		case "None":
			out = append(out, policySetting{ua.SecurityPolicyURINone, ua.MessageSecurityModeNone})
		case "Basic256Sha256 Sign":
			out = append(out, policySetting{ua.SecurityPolicyURIBasic256Sha256, ua.MessageSecurityModeSign})
		case "Basic256Sha256 Sign&Encrypt":
			out = append(out, policySetting{ua.SecurityPolicyURIBasic256Sha256, ua.MessageSecurityModeSignAndEncrypt})
		case "Aes128 Sha256 OAEP Sign":
			out = append(out, policySetting{ua.SecurityPolicyURIAes128Sha256RsaOaep, ua.MessageSecurityModeSign})
		case "Aes128 Sha256 OAEP Sign&Encrypt":
			out = append(out, policySetting{ua.SecurityPolicyURIAes128Sha256RsaOaep, ua.MessageSecurityModeSignAndEncrypt})
		case "Aes256 Sha256 PSS Sign":
			out = append(out, policySetting{ua.SecurityPolicyURIAes256Sha256RsaPss, ua.MessageSecurityModeSign})
		case "Aes256 Sha256 PSS Sign&Encrypt":
			out = append(out, policySetting{ua.SecurityPolicyURIAes256Sha256RsaPss, ua.MessageSecurityModeSignAndEncrypt})
		default:
			return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "unknown OPC UA security policy %q", name)
		}
	}
	return out, nil
}

// requiresCertificate reports whether any configured policy is not "None",
// which means a server certificate must be present.
func requiresCertificate(names []string) bool {
	for _, n := range names {
		if n != "None" {
			return true
		}
	}
	return false
}
