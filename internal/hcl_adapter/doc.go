// Package hcl_adapter reads catalogues written in HCL. It is the HCL
// implementation of config.Loader, for catalogues kept next to their module
// sources in the same language:
//
//	name = "fluids"
//
//	submodule "fluids.core" {
//	  source   = "core.hcl"
//	  requires = ["fluids.numerics"]
//	}
//
//	rewrite "fluids.numerics" "secant" {
//	  rule {
//	    match   = "kwargs = true"
//	    replace = ""
//	  }
//	}
//
//	alias "Colebrook" {
//	  target  = "Clamond"
//	  modules = ["fluids.friction"]
//	}
package hcl_adapter
