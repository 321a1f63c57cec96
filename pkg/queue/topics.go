// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：pv.<域>.<动作>，尽量稳定且向后兼容.
// 域：project(项目)、file(文件)、trash(回收站)、post(发布)
// 主题仅使用 [a-z.]，保证在 NATS subject 中合法.

const (
	// 回收站领域.
	TopicProjectTrashed  = "pv.project.trashed"  // 项目连同其文件被移入回收站
	TopicProjectRestored = "pv.project.restored" // 项目从回收站恢复（新标识）
	TopicFileTrashed     = "pv.file.trashed"     // 单个文件被移入回收站
	TopicFileRestored    = "pv.file.restored"    // 文件从回收站恢复到目标项目
	TopicTrashPurged     = "pv.trash.purged"     // 回收站条目被永久删除
	TopicTrashSwept      = "pv.trash.swept"      // 过期清理任务完成

	// 发布领域.
	TopicPostScheduled = "pv.post.scheduled" // 文件进入 scheduled
	TopicPostPosted    = "pv.post.posted"    // 平台提交成功
	TopicPostFailed    = "pv.post.failed"    // 平台提交失败或对账判定失败
)
