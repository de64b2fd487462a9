package handler

import (
	"encoding/binary"

	"github.com/leeforge/imagekit/media/processor"
)

// entry 缓存中的转换结果
//
// 格式：u16 mediaType 长度 | mediaType | u32 宽 | u32 高 | 编码后的数据
type entry struct {
	MediaType string
	Width     int
	Height    int
	Data      []byte
}

func entryFromResult(res *processor.Result) entry {
	w, _ := res.Settings.Width()
	h, _ := res.Settings.Height()
	return entry{MediaType: res.MediaType, Width: w, Height: h, Data: res.Data}
}

func (e entry) marshal() []byte {
	buf := make([]byte, 0, 2+len(e.MediaType)+8+len(e.Data))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.MediaType)))
	buf = append(buf, e.MediaType...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(e.Width))
	buf = binary.BigEndian.AppendUint32(buf, uint32(e.Height))
	return append(buf, e.Data...)
}

func unmarshalEntry(b []byte) (entry, bool) {
	if len(b) < 2 {
		return entry{}, false
	}
	n := int(binary.BigEndian.Uint16(b))
	b = b[2:]
	if len(b) < n+8 {
		return entry{}, false
	}
	e := entry{MediaType: string(b[:n])}
	b = b[n:]
	e.Width = int(binary.BigEndian.Uint32(b))
	e.Height = int(binary.BigEndian.Uint32(b[4:]))
	e.Data = b[8:]
	return e, true
}
