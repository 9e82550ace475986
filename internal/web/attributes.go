package web

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zigbee-coop-door/internal/device"
	"zigbee-coop-door/internal/zcl"
	"zigbee-coop-door/internal/zcl/clusters"
)

// zclResult is the ZCL-level outcome of an attribute write or a cluster
// command carried over the web API.
type zclResult struct {
	Status uint8  `json:"status"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
}

// zclStatus maps a command-path error to its ZCL status code.
func zclStatus(err error) uint8 {
	switch {
	case err == nil:
		return zcl.StatusSuccess
	case errors.Is(err, device.ErrUnhandled):
		return zcl.StatusNotImplemented
	default:
		return zcl.StatusFailure
	}
}

// handleWriteAttribute carries a raw ZCL attribute write: the value is a hex
// string, validated against the hosted cluster definition before it reaches
// the command bridge.
func (s *Server) handleWriteAttribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cluster uint16 `json:"cluster"`
		Attr    uint16 `json:"attr"`
		Value   string `json:"value"` // hex encoded
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	cl := s.endpoint.Cluster(req.Cluster)
	if cl == nil {
		s.writeJSON(w, http.StatusOK, zclResult{Status: zcl.StatusNotImplemented})
		return
	}
	attr := cl.FindAttribute(req.Attr)
	if attr == nil {
		s.writeJSON(w, http.StatusOK, zclResult{Status: zcl.StatusUnsupportedAttr})
		return
	}

	res := zclResult{Name: attr.Name, Type: zcl.TypeName(attr.Type)}
	if !attr.IsWritable() {
		res.Status = zcl.StatusReadOnly
		s.writeJSON(w, http.StatusOK, res)
		return
	}
	value, err := hex.DecodeString(req.Value)
	if err != nil {
		res.Status = zcl.StatusInvalidValue
		s.writeJSON(w, http.StatusOK, res)
		return
	}
	if size := zcl.TypeSize(attr.Type); size >= 0 && len(value) != size {
		res.Status = zcl.StatusInvalidDataType
		s.writeJSON(w, http.StatusOK, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res.Status = zclStatus(s.door.ApplyAttributeWrite(ctx, req.Cluster, req.Attr, value))
	s.writeJSON(w, http.StatusOK, res)
}

// handleCommand carries a cluster-specific command. Commands declared on a
// hosted cluster but not processed by this device report "not implemented",
// like the unhandled callback classes of the firmware.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cluster uint16 `json:"cluster"`
		Command uint8  `json:"command"`
		Arg     uint16 `json:"arg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	cl := s.endpoint.Cluster(req.Cluster)
	if cl == nil {
		s.writeJSON(w, http.StatusOK, zclResult{Status: zcl.StatusNotImplemented})
		return
	}
	cmd := cl.FindCommand(req.Command)
	if cmd == nil {
		s.writeJSON(w, http.StatusOK, zclResult{Status: zcl.StatusNotImplemented})
		return
	}

	res := zclResult{Name: cmd.Name}
	res.Status = zclStatus(s.dispatchCommand(r.Context(), req.Cluster, req.Command, req.Arg))
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) dispatchCommand(ctx context.Context, clusterID uint16, cmdID uint8, arg uint16) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch clusterID {
	case clusters.OnOff.ID:
		switch cmdID {
		case 0x00:
			return s.door.SetOnOff(ctx, false)
		case 0x01:
			return s.door.SetOnOff(ctx, true)
		case 0x02:
			return s.door.SetOnOff(ctx, !s.door.OnOff())
		}
	case clusters.Identify.ID:
		switch cmdID {
		case 0x00:
			return s.door.HandleIdentify(arg)
		case 0x01:
			// IdentifyQuery; the active flag is in the state document.
			return nil
		}
	}
	return fmt.Errorf("cluster 0x%04X command 0x%02X: %w", clusterID, cmdID, device.ErrUnhandled)
}
