package testutil

// UCPChainNames is the chain in display order: each extension depends on the
// one after it.
var UCPChainNames = []string{
	"running-units",
	"aicloader",
	"extreme-is-the-new-normal",
	"maploader",
	"files",
	"graphicsApiReplacer",
	"winProcHandler",
	"ucp2-legacy",
}

// UCPChain returns builders for the chain, all at 1.0.0 with a framework
// dependency, plus a second files version so version selection matters.
func UCPChain() []*PackageBuilder {
	var out []*PackageBuilder
	for i, name := range UCPChainNames {
		b := Pkg(name, "1.0.0").Dep("framework", "^3.0.0")
		if i+1 < len(UCPChainNames) {
			b.Dep(UCPChainNames[i+1], "^1.0.0")
		}
		out = append(out, b)
	}
	out = append(out, Pkg("files", "0.9.0").Dep("framework", "^3.0.0").Dep("graphicsApiReplacer", "^1.0.0"))
	return out
}

// UCPChainIDs renders the chain in display order as name@version.
func UCPChainIDs() []string {
	out := make([]string, len(UCPChainNames))
	for i, n := range UCPChainNames {
		out[i] = n + "@1.0.0"
	}
	return out
}
