// Package main 启动应用程序
package main

import "github.com/yeisme/postvault/pkg/cmd"

//	@title			PostVault API
//	@version		1.0
//	@description	PostVault 管理帖子内容的生命周期：项目与文件、回收站、自动保存与定时发布。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
