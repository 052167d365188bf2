package graph

import (
	"bufio"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// Fingerprint 计算网络拓扑和元件值的 BLAKE3 摘要。
// 摘要与导出网表的内容一一对应,用于识别重复生成的网表。
func (g *Graph) Fingerprint() string {
	h := blake3.New(32, nil)
	w := bufio.NewWriter(h)
	for i := range g.Resistors {
		r := &g.Resistors[i]
		fmt.Fprintf(w, "%s %s %s %.9f\n", r.Name, r.Ends[0], r.Ends[1], r.Value)
	}
	for i := range g.VoltageSources {
		vs := &g.VoltageSources[i]
		fmt.Fprintf(w, "%s %s 0 %.9f\n", vs.Name, vs.Coords, vs.Value)
	}
	for i := range g.CurrentSources {
		cs := &g.CurrentSources[i]
		fmt.Fprintf(w, "%s %s 0 %.9f\n", cs.Name, cs.Coords, cs.Value)
	}
	w.Flush()
	return hex.EncodeToString(h.Sum(nil))
}
