package publish

import (
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/postvault/pkg/internal/model"
)

// IdempotencyKey 由文件、标题、正文、平台参数与定时时间派生出提交幂等键.
// 内容任一变化都会得到新的键；未设定时间的立即提交使用固定槽位.
func IdempotencyKey(f *model.File) string {
	h := xxhash.New()

	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}

	write(f.ID)
	write(f.Platform)
	write(f.Title)
	write(f.Content)

	if settings, err := sonic.ConfigStd.Marshal(f.PlatformSettings); err == nil {
		_, _ = h.Write(settings)
	}

	_, _ = h.Write([]byte{0})

	if f.ScheduledAt != nil {
		write(strconv.FormatInt(f.ScheduledAt.UTC().Unix(), 10))
	} else {
		write("immediate")
	}

	return strconv.FormatUint(h.Sum64(), 16)
}
