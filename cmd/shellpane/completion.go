package main

import "fmt"

func completionMain(args []string) {
	shell := "bash"
	if len(args) > 0 && args[0] != "" {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	default:
		log.Fatalf("unsupported shell: %s (use bash or zsh)", shell)
	}
}

const bashCompletion = `
_shellpane_completions()
{
    local cur
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "resume replay sessions completion --config --c --cd --C --max-lines --no-pty --no-syntax" -- "$cur") )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            ;;
        resume)
            COMPREPLY=( $(compgen -W "--last --session --config --c --cd --C --max-lines --no-pty --no-syntax" -- "$cur") )
            ;;
        replay)
            COMPREPLY=( $(compgen -W "--last --max-lines" -- "$cur") )
            ;;
        sessions)
            COMPREPLY=( $(compgen -W "--n" -- "$cur") )
            ;;
    esac
}
complete -F _shellpane_completions shellpane
`

const zshCompletion = `
#compdef shellpane
_shellpane() {
    local -a subcmds
    subcmds=('resume:resume a saved console session' 'replay:print the scrollback of a saved session' 'sessions:list saved sessions' 'completion:print shell completions')
    if (( CURRENT == 2 )); then
        _describe 'command' subcmds
        return
    fi
    case "$words[2]" in
        completion)
            _values 'shell' bash zsh
            ;;
        resume)
            _arguments '--last[resume the most recent session]' '--session[session id]:id:'
            ;;
        replay)
            _arguments '--last[replay the most recent session]' '--max-lines[scrollback line limit]:n:'
            ;;
    esac
}
compdef _shellpane shellpane
`
