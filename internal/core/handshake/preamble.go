package handshake

import (
	"io"

	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// WritePreamble 写出通信模式字节与客户端版本序号
func WritePreamble(w io.Writer, mode types.CommunicationMode, version types.Version) error {
	ww := wire.NewWriter(w, version)
	ww.AddByte(byte(mode))
	ww.AddVersionOrdinal(version)
	return ww.Flush()
}

// ReadPreamble 读取通信模式字节与客户端版本序号
//
// 不会读取前导之后的任何字节。
func ReadPreamble(r io.Reader) (types.CommunicationMode, types.Version, error) {
	rr := wire.NewReader(r, types.VersionCurrent)
	b, err := rr.ReadByte()
	if err != nil {
		return 0, types.Version{}, err
	}
	mode := types.CommunicationMode(b)
	if !mode.Valid() {
		return 0, types.Version{}, types.NewProtocolMismatch("unknown communication mode %d", b)
	}
	version, err := rr.ReadVersionOrdinal()
	if err != nil {
		return 0, types.Version{}, err
	}
	if version.Ordinal <= 0 {
		return 0, types.Version{}, types.NewProtocolMismatch("unsupported client version ordinal %d", version.Ordinal)
	}
	return mode, version, nil
}
