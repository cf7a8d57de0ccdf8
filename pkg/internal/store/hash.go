package store

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/clipvault/pkg/internal/model"
)

// ContentHash 计算条目的内容哈希.
//
// 哈希覆盖 kind、分隔符与内容；内容超过 sample 字节时只哈希长度、前 sample/2 字节与后 sample/2 字节.
func ContentHash(kind model.ItemKind, content string, sample int) string {
	d := xxhash.New()
	_, _ = d.WriteString(string(kind))
	_, _ = d.Write([]byte{0})

	if sample > 0 && len(content) > sample {
		var n [8]byte

		binary.BigEndian.PutUint64(n[:], uint64(len(content)))
		_, _ = d.Write(n[:])

		half := sample / 2
		_, _ = d.WriteString(content[:half])
		_, _ = d.WriteString(content[len(content)-half:])
	} else {
		_, _ = d.WriteString(content)
	}

	return strconv.FormatUint(d.Sum64(), 16)
}
