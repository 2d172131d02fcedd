package gmmvad

// 测试信号生成，全部为整数运算以保证结果可复现

// lcg 线性同余噪声源
type lcg struct {
	x uint32
}

func (g *lcg) next() int16 {
	g.x = g.x*1103515245 + 12345
	return int16(g.x >> 16)
}

// noise 生成n个样本，幅度按shift右移
func (g *lcg) noise(n int, shift uint) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = g.next() >> shift
	}
	return out
}

// squareAt 从第start个样本开始的方波，period为周期样本数
func squareAt(n, period int, amp int16, start int) []int16 {
	out := make([]int16, n)
	for i := range out {
		if ((start+i)/(period/2))%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

// pcm 将样本编码为16位小端序字节
func pcm(samples []int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(uint16(s) >> 8)
	}
	return buf
}

func newInstance(mode Mode) *Instance {
	inst := &Instance{}
	if err := inst.Init(); err != nil {
		panic(err)
	}
	if err := inst.SetMode(mode); err != nil {
		panic(err)
	}
	return inst
}
