package main

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/ninja0404/wash-signal/internal/app"
)

func main() {
	// 访问令牌等敏感配置从.env注入，文件不存在时忽略
	_ = godotenv.Load()

	application := app.New()

	if err := application.Start("./config/config.yaml"); err != nil {
		fmt.Printf("应用启动失败: %v\n", err)
		return
	}
}
