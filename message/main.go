package message

var DefaultMessageCodecs = []Codec{
	&startupCodec{},
	&queryCodec{},
	&authResponseCodec{},
	&errorCodec{},
	&readyCodec{},
	&authenticateCodec{},
	&resultCodec{},
	&authChallengeCodec{},
	&authSuccessCodec{},
}
