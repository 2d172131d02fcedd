package gmmvad

// smooth 拖尾（hysteresis）状态机
//
// 非语音帧若仍处于拖尾期，输出2+overHang并递减；语音帧原样输出1，
// 连续语音帧数达到kMaxSpeechFrames后使用较长的拖尾OverhangMax2，
// 否则使用OverhangMax1。
func (inst *Instance) smooth(vadflag int16, th Thresholds) int16 {
	if vadflag == 0 {
		if inst.overHang > 0 {
			vadflag = 2 + inst.overHang
			inst.overHang--
		}
		inst.numOfSpeech = 0
		return vadflag
	}

	inst.numOfSpeech++
	if inst.numOfSpeech > kMaxSpeechFrames {
		inst.numOfSpeech = kMaxSpeechFrames
		inst.overHang = th.OverhangMax2
	} else {
		inst.overHang = th.OverhangMax1
	}
	return vadflag
}
