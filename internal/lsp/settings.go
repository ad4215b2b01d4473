package lsp

import "encoding/json"

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didChangeConfiguration params", "err", err)
		return nil
	}
	if s.applySettings(params.Settings) {
		s.republishAll()
	}
	return nil
}

// applySettings reads the "orlint" section; it reports whether published
// diagnostics need to be rebuilt.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("invalid settings", "err", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	if v := settings.Orlint.MaxDiagnostics; v != nil && *v != s.maxDiagnostics {
		s.maxDiagnostics = max(*v, 0)
		changed = true
	}
	if v := settings.Orlint.Trace; v != nil {
		s.trace = *v
	}
	return changed
}
