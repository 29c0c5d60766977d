package lib

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// MarshalJSON() serializes a message into a JSON byte slice
func MarshalJSON(message any) ([]byte, ErrorI) {
	bz, err := json.Marshal(message)
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndent() serializes a message into an indented JSON byte slice
func MarshalJSONIndent(message any) ([]byte, ErrorI) {
	bz, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndentString() serializes a message into an indented JSON string
func MarshalJSONIndentString(message any) (string, ErrorI) {
	bz, err := MarshalJSONIndent(message)
	return string(bz), err
}

// UnmarshalJSON() deserializes a JSON byte slice into the specified object
func UnmarshalJSON(bz []byte, ptr any) ErrorI {
	if err := json.Unmarshal(bz, ptr); err != nil {
		return ErrJSONUnmarshal(err)
	}
	return nil
}

// NewJSONFromFile() reads a json object from file
func NewJSONFromFile(o any, dataDirPath, filePath string) ErrorI {
	bz, err := os.ReadFile(filepath.Join(dataDirPath, filePath))
	if err != nil {
		return ErrReadFile(err)
	}
	return UnmarshalJSON(bz, o)
}

// SaveJSONToFile() saves a json object to a file
func SaveJSONToFile(j any, dataDirPath, filePath string) ErrorI {
	bz, err := MarshalJSONIndent(j)
	if err != nil {
		return err
	}
	if e := os.WriteFile(filepath.Join(dataDirPath, filePath), bz, os.ModePerm); e != nil {
		return ErrWriteFile(e)
	}
	return nil
}

// HexBytes represents a byte slice that can be marshaled and unmarshalled as hex strings
type HexBytes []byte

// NewHexBytesFromString() converts a hexadecimal string into HexBytes
func NewHexBytesFromString(s string) (HexBytes, ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrStringToBytes(err)
	}
	return bz, nil
}

// String() returns the HexBytes as a hexadecimal string
func (x HexBytes) String() string { return hex.EncodeToString(x) }

// MarshalJSON() serializes the HexBytes to a JSON string
func (x HexBytes) MarshalJSON() ([]byte, error) { return json.Marshal(x.String()) }

// UnmarshalJSON() deserializes a JSON string into HexBytes
func (x *HexBytes) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err = json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*x = nil
		return nil
	}
	*x, err = NewHexBytesFromString(s)
	return
}

// NewTimer() creates a stopped, drained timer
func NewTimer() *time.Timer {
	t := time.NewTimer(0)
	<-t.C
	return t
}

// ResetTimer() stops the existing timer, and resets with the new duration
func ResetTimer(t *time.Timer, d time.Duration) {
	StopTimer(t)
	t.Reset(d)
}

// StopTimer() stops the existing timer and drains a pending fire
func StopTimer(t *time.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		for len(t.C) > 0 {
			<-t.C
		}
	}
}

// CatchPanic() logs any panic in the function call or child function calls
func CatchPanic(l LoggerI) {
	if r := recover(); r != nil {
		l.Errorf("recovered from panic: %v\n%s", r, string(debug.Stack()))
	}
}
