package codec

import "github.com/copperhead-labs/attestation-server/pkg/base64util"

// dictionaryB64 is the fixed preset dictionary used for every RAW DEFLATE
// frame this server produces or consumes. It is derived from a corpus of
// sample attestation certificates and is not versioned independently of
// PROTOCOL_VERSION: changing it would make every previously-issued client
// unable to talk to the server.
const dictionaryB64 = `lYjM9vYI1t2cvM+HtZ5ro2BhutscZ0Tr60VwtWJEqZZBVFRFU1RBVElPTi1ESUNULVNFRUQtcHVia2V5LWV4dF0TAiRLJqC1nzSjqT0nbkMmkEDdS+h7iady0xptro7ElYjM9vYI1t2cvM+HtZ5ro2BhutscZ0Tr60VwtWJEqZaTQ1JyubMiWnfHATa1Wp3TGpK6n6iToUmLgSPHKZ8lZ10TAiRLJqC1nzSjqT0nbkMmkEDdS+h7iady0xptro7Ea3jjoZmj7SDzii5+CR0eLolzjBsBL9KYrLTiTgIUfPmTQ1JyubMiWnfHATa1Wp3TGpK6n6iToUmLgSPHKZ8lZxPpCeASWm5Mbm2OhBZBwuKuDkr2ZVol2yaHMUKULVssa3jjoZmj7SDzii5+CR0eLolzjBsBL9KYrLTiTgIUfPm5fPpR9+bw4h8c2ri5JoY4Kxhxli00xNkwq5mfS7J+cRPpCeASWm5Mbm2OhBZBwuKuDkr2ZVol2yaHMUKULVssDkg23m0YL3hDgF9oKbPidYEAuq6Rf8nltbLjxl2XhKe5fPpR9+bw4h8c2ri5JoY4Kxhxli00xNkwq5mfS7J+cfoTMNwlrGye6AQjXcSNJ2/4Os/c1hRCetOpFbB+CKjeDkg23m0YL3hDgF9oKbPidYEAuq6Rf8nltbLjxl2XhKcbo9cLE3NWPHFX9xrRQy3Tmks4Vkqx4bx8dU+uuWqPU/oTMNwlrGye6AQjXcSNJ2/4Os/c1hRCetOpFbB+CKjeFLFDcRAfhsYNlQNcyYFt/CaA/nOEjwMYPpH+tOLnQfwbo9cLE3NWPHFX9xrRQy3Tmks4Vkqx4bx8dU+uuWqPU8/Su38O9t+AYQkLb+2QslLSvqv01NCuEq2BxIAjvH3HFLFDcRAfhsYNlQNcyYFt/CaA/nOEjwMYPpH+tOLnQfwyRhhGF7WjhF4D3CxVHBp9Czomi4wzaXg7e/hizLkuyM/Su38O9t+AYQkLb+2QslLSvqv01NCuEq2BxIAjvH3H/S/3EbJ1MltZIdIqi0PhUv4VELTgDE5cUBJzmnXTjkoyRhhGF7WjhF4D3CxVHBp9Czomi4wzaXg7e/hizLkuyI1J+fDz5lHxO1pI7imZjLefwh3iVFsb+zLAT/pJAASg/S/3EbJ1MltZIdIqi0PhUv4VELTgDE5cUBJzmnXTjkoTU03Q2Z/iKsNaw9x/dKWL4VGAKi13Q7CkYeuXdu1M/Y1J+fDz5lHxO1pI7imZjLefwh3iVFsb+zLAT/pJAASgZVX5sj2vzeIReRA5H1a/Q54TaFPz9xsO8f0Ia7kqBuoTU03Q2Z/iKsNaw9x/dKWL4VGAKi13Q7CkYeuXdu1M/Q==`

// dictionary is the decoded preset DEFLATE dictionary, computed once at
// package init since it is a compiled-in constant.
var dictionary = mustDecodeDictionary()

func mustDecodeDictionary() []byte {
	b, err := base64util.DecodeString(dictionaryB64)
	if err != nil {
		panic("codec: invalid compiled-in dictionary: " + err.Error())
	}
	return b
}
