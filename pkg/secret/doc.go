// Package secret generates client secrets for password credentials.
//
// Values come from crypto/rand and are base64-URL-encoded:
//
//	value, err := secret.Generate()
//	if err != nil {
//	    return err
//	}
//	// value is a 44-character string
//
// Secret values are never logged. Use Fingerprint to identify a value in logs:
//
//	logger.Info("Password credential created", zap.String("fingerprint", secret.Fingerprint(value)))
package secret
