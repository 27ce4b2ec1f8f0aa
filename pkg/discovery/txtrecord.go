package discovery

import (
	"fmt"
	"slices"
	"strings"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeNodeTXT creates TXT records for a node.
func EncodeNodeTXT(info *NodeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyID:       info.ID,
		TXTKeyProtocol: version.Current,
	}
	if info.Catalog != "" {
		txt[TXTKeyCatalog] = info.Catalog
	}
	return txt
}

// DecodeNodeTXT parses TXT records advertised by a node.
func DecodeNodeTXT(txt TXTRecordMap) (*NodeInfo, error) {
	id, ok := txt[TXTKeyID]
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}
	if proto, ok := txt[TXTKeyProtocol]; ok {
		if err := version.Check(proto); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocolMismatch, err)
		}
	}
	return &NodeInfo{ID: id, Catalog: txt[TXTKeyCatalog]}, nil
}

// TXTRecordsToStrings converts records to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings. A key without '=' maps to "".
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		if s == "" {
			continue
		}
		k, v, _ := strings.Cut(s, "=")
		txt[k] = v
	}
	return txt
}

// InstanceName derives the DNS-SD instance name for a node id.
func InstanceName(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrMissingRequired)
	}
	if len(id) > MaxInstanceNameLen {
		return "", ErrInstanceNameTooLong
	}
	return id, nil
}
