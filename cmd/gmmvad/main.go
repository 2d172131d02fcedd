// Command gmmvad 对16位单声道PCM或WAV文件做逐帧语音活动检测
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
